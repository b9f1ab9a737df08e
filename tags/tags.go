// Package tags picks the misleading_tags values a note submission carries,
// constrained to the platform's allowed enumeration.
package tags

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"notewriter-lab/generation"
	"notewriter-lab/models"
)

// MisleadingTagsEnum is the built-in copy of the /2/notes misleading_tags
// enumeration, used when live discovery is unavailable.
var MisleadingTagsEnum = []string{
	"disputed_claim_as_fact",
	"factual_error",
	"manipulated_media",
	"misinterpreted_satire",
	"missing_important_context",
	"other",
	"outdated_information",
}

// DefaultTag is the safe fallback; by convention always a member of the
// allowed enumeration.
const DefaultTag = "missing_important_context"

// Selector maps a (tweet, note) pair to a non-empty subset of allowed tags.
// Implementations never return an empty set and never fail.
type Selector interface {
	Choose(ctx context.Context, tweet models.Tweet, noteText string, allowed []string) []string
}

// LLMSelector asks the model to label why the tweet is misleading, then
// filters the answer against the allowed enumeration.
type LLMSelector struct {
	llm generation.LLMClient
}

func NewLLMSelector(llm generation.LLMClient) *LLMSelector {
	return &LLMSelector{llm: llm}
}

func (s *LLMSelector) Choose(ctx context.Context, tweet models.Tweet, noteText string, allowed []string) []string {
	if len(allowed) == 0 {
		allowed = MisleadingTagsEnum
	}
	if s.llm == nil {
		return defaultTags()
	}

	systemPrompt := "You are assisting a Community Notes contributor.\n" +
		"Your task is to label why a tweet is misleading or incomplete, " +
		"based on a Community Note that explains the issue.\n\n" +
		"You MUST choose one or more reasons strictly from this enum list:\n" +
		strings.Join(allowed, ", ") + "\n\n" +
		"Return ONLY a single JSON object of the form:\n" +
		`{"misleading_tags": ["tag1", "tag2"]}` + "\n" +
		"Do not include any extra text, comments, or explanation."

	userPrompt := "Tweet text:\n" + tweet.Text + "\n\n" +
		"Community Note:\n" + noteText + "\n\n" +
		"Pick the most appropriate misleading_tags values from the enum list."

	raw, err := s.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return defaultTags()
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = struct{}{}
	}

	var chosen []string
	seen := make(map[string]struct{})
	for _, v := range gjson.Get(extractJSONObject(raw), "misleading_tags").Array() {
		tag := v.String()
		if _, ok := allowedSet[tag]; !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		chosen = append(chosen, tag)
	}

	if len(chosen) == 0 {
		return defaultTags()
	}
	return chosen
}

func defaultTags() []string {
	return []string{DefaultTag}
}

// extractJSONObject pulls the first {...} block out of an LLM response,
// tolerating code fences and surrounding prose.
func extractJSONObject(text string) string {
	stripped := strings.TrimSpace(text)
	stripped = strings.Trim(stripped, "`")
	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start == -1 || end == -1 || end <= start {
		return stripped
	}
	return stripped[start : end+1]
}
