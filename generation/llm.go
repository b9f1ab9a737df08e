package generation

import "context"

// LLMClient abstracts the chat-completion backend so it can be swapped or
// mocked.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMSettings carries the configuration for concrete clients.
type LLMSettings struct {
	Model   string
	APIKey  string
	BaseURL string
}
