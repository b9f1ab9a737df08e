package generation

import (
	"context"
	"errors"
	"strings"

	"notewriter-lab/models"
)

// NoteWriter drafts and rewrites Community Notes through an LLMClient.
type NoteWriter struct {
	llm LLMClient
}

func NewNoteWriter(llm LLMClient) (*NoteWriter, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &NoteWriter{llm: llm}, nil
}

// GenerateNote produces a first-draft note for the tweet using the writer's
// prompt template.
func (w *NoteWriter) GenerateNote(ctx context.Context, tweet models.Tweet, writer models.WriterConfig) (string, error) {
	raw, err := w.llm.Complete(ctx, noteSystemPrompt, BuildNotePrompt(tweet, writer))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", errors.New("model returned empty note text")
	}
	return text, nil
}

// RewriteNote produces an improved note from a weak draft, telling the model
// which deficiencies to fix.
func (w *NoteWriter) RewriteNote(ctx context.Context, tweet models.Tweet, writer models.WriterConfig, currentNote, weaknessSummary string) (string, error) {
	prompt := BuildRewritePrompt(tweet, writer, currentNote, weaknessSummary)
	raw, err := w.llm.Complete(ctx, rewriteSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", errors.New("model returned empty note text")
	}
	return text, nil
}
