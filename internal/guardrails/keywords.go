package guardrails

import (
	"context"
	"strings"
	"unicode"
)

var profanity = []string{
	"puto", "puta", "carajo", "concha", "pelotudo", "pelotuda",
	"boludo", "boluda", "idiota", "estupido", "estúpido", "estupida", "estúpida", "mierda",
	"cagar", "joder", "coger", "verga", "pija", "choto", "gil",
	"tarado", "tarada", "forro", "la concha", "negro de mierda",
	"hijo de puta", "la puta madre", "que se vayan", "villero",
}

var topicAllowList = []string{
	"matafuego", "extintor", "incendio", "fuego", "seguridad",
	"inspeccion", "inspección", "habilitacion", "habilitación", "bomba", "hidrante",
	"sprinkler", "detector", "humo", "alarma", "prevencion", "prevención",
	"proteccion", "protección", "emergencia", "evacuacion", "evacuación", "riesgo",
	"instalacion", "instalación", "mantenimiento", "certificacion", "certificación",
	"norma", "iram", "nfpa", "bombero", "argenfuego", "eva",
	"servicio", "consultoria", "consultoría", "asesoramiento", "capacitacion", "capacitación",
	"precio", "cotiz", "presupuesto", "recarga", "comprar",
}

var greetings = []string{"hola", "buenas", "buen día", "buen dia", "buenos días", "buenos dias", "gracias"}

// KeywordModerator flags text containing a word from the local profanity list.
// Single words match whole tokens; phrases match as substrings.
type KeywordModerator struct {
	words []string
}

func NewKeywordModerator() *KeywordModerator {
	return &KeywordModerator{words: profanity}
}

func (m *KeywordModerator) Moderate(_ context.Context, text string) (Moderation, error) {
	lower := strings.ToLower(text)
	tokens := tokenSet(lower)
	for _, w := range m.words {
		hit := false
		if strings.Contains(w, " ") {
			hit = strings.Contains(lower, w)
		} else {
			_, hit = tokens[w]
		}
		if hit {
			return Moderation{Flagged: true, Categories: []string{"profanity"}}, nil
		}
	}
	return Moderation{}, nil
}

// KeywordClassifier accepts text mentioning a domain keyword or a greeting.
type KeywordClassifier struct {
	allow []string
}

func NewKeywordClassifier() *KeywordClassifier {
	allow := make([]string, 0, len(topicAllowList)+len(greetings))
	allow = append(allow, topicAllowList...)
	allow = append(allow, greetings...)
	return &KeywordClassifier{allow: allow}
}

func (c *KeywordClassifier) InScope(_ context.Context, text string) (bool, error) {
	lower := strings.ToLower(text)
	for _, kw := range c.allow {
		if strings.Contains(lower, kw) {
			return true, nil
		}
	}
	return false, nil
}

func tokenSet(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
