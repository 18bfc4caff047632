package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a provider-neutral completion request. When ResponseSchema is
// set the provider is asked for JSON conforming to it.
type Request struct {
	Model          string
	System         []string
	Messages       []Message
	MaxTokens      int32
	Temperature    float32
	TopP           float32
	ResponseSchema *Schema
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is implemented by every model provider and decorator in this package.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string) Request {
	req := Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: -1,
	}
	if system != "" {
		req.System = []string{system}
	}
	return req
}
