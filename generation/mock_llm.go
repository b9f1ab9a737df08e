package generation

import (
	"context"
	"strings"
)

// MockLLM is a placeholder client for local runs without API credentials.
// It returns a fixed, well-formed note for note prompts and a default tag
// object for tag prompts.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, _ string, userPrompt string) (string, error) {
	if strings.Contains(userPrompt, "misleading_tags") {
		return `{"misleading_tags": ["missing_important_context"]}`, nil
	}
	return "The post omits context: the figure cited covers 2019-2023, not a single year. " +
		"Official statistics are published at https://example.com/statistics for verification.", nil
}
