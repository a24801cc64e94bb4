package llm

import "context"

// conversation roles understood by the provider
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// produces a model reply for a conversation
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// one prior turn replayed as history
type Turn struct {
	Role    Role
	Content string
}

// a completion request; ImageURL turns the prompt into a vision request
type Request struct {
	Model        string
	SystemPrompt string
	History      []Turn
	Prompt       string
	ImageURL     string
	MaxTokens    int
	Temperature  float32
}

// token figures reported by the provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// the model's reply; Usage is nil when the provider omits it
type Response struct {
	Text  string
	Model string
	Usage *Usage
}
