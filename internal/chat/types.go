package chat

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is the provider-neutral completion request.
type Request struct {
	Messages    []Message
	Model       string
	Temperature *float32 // optional temperature
	MaxTokens   *int     // optional max tokens
}

// Result is the provider-neutral completion result.
type Result struct {
	Message      Message
	Model        string
	FinishReason string
	Usage        Usage
}

// Provider issues a single chat completion.
type Provider interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
