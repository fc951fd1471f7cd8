package guardrails

import (
	"context"
	"fmt"
	"strings"

	"github.com/argenfuego/eva/internal/chat"
)

const (
	topicMaxTokens   = 5
	topicTemperature = float32(0.2)
)

const topicPromptTemplate = `Eres un validador para Argenfuego, empresa especializada en seguridad contra incendios.

SERVICIOS DE ARGENFUEGO:
- Venta de matafuegos/extintores y elementos de protección personal
- Mantenimiento y recarga de extintores
- Control anual e inspecciones de sistemas contra incendios
- Instalación de redes de incendio y sistemas fijos
- Habilitaciones y certificaciones de seguridad
- Asesoramiento y capacitación en prevención de incendios

Responde SOLO 'SÍ' si el mensaje está relacionado con:
- Cualquier consulta sobre nuestros servicios/productos
- Preguntas técnicas sobre seguridad contra incendios
- Consultas de ventas, precios, mantenimiento
- Saludos y conversación básica de atención al cliente
- Solicitudes de información o asesoramiento

Responde 'NO' solo para temas COMPLETAMENTE ajenos (deportes, política, cocina, etc.)

Mensaje del cliente: "%s"

Respuesta:`

// LLMTopicClassifier asks a chat model for a yes/no domain verdict.
type LLMTopicClassifier struct {
	provider chat.Provider
	model    string
}

func NewLLMTopicClassifier(provider chat.Provider, model string) *LLMTopicClassifier {
	return &LLMTopicClassifier{provider: provider, model: model}
}

func (c *LLMTopicClassifier) InScope(ctx context.Context, text string) (bool, error) {
	maxTokens := topicMaxTokens
	temperature := topicTemperature
	res, err := c.provider.Chat(ctx, chat.Request{
		Model:       c.model,
		Messages:    []chat.Message{{Role: chat.RoleUser, Content: fmt.Sprintf(topicPromptTemplate, text)}},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return false, fmt.Errorf("topic classification: %w", err)
	}
	return affirmative(res.Message.Content), nil
}

func affirmative(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return strings.Contains(a, "sí") || strings.Contains(a, "si")
}
