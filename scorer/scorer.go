// Package scorer estimates how factual and sourced a note is before the lab
// decides to rewrite or submit it. The heuristic variant is always available;
// an external evaluator can be plugged in and silently falls back to the
// heuristic on any failure.
package scorer

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Result is the common output shape of every scorer variant.
type Result struct {
	// ClaimOpinionScore estimates claim vs. opinion balance on [0, 1].
	ClaimOpinionScore float64
	// URLPass is true when the note carries at least one URL.
	URLPass bool
	// URLCount is the number of distinct URL-like substrings.
	URLCount int
	// RawPayload holds the external evaluator's response, nil for the
	// heuristic variant.
	RawPayload json.RawMessage
}

// Scorer scores a note against its source post. Implementations must be
// deterministic for identical inputs.
type Scorer interface {
	Score(ctx context.Context, postText, noteText string) (Result, error)
}

var (
	urlRe     = regexp.MustCompile(`(?i)https?://[^\s)]+`)
	figuresRe = regexp.MustCompile(`\b\d{2,}\b|\d+%`)
)

// subjectiveMarkers is the fixed hedging/opinion lexicon the heuristic
// penalizes. Counted on lowercased text.
var subjectiveMarkers = []string{
	"i think",
	"in my opinion",
	"we believe",
	"should",
	"must",
	"clearly",
	"obviously",
}

// SubjectiveMarkerCount returns how many opinion-lexicon hits the text has.
// Exposed so callers can explain a low score back to the rewrite prompt.
func SubjectiveMarkerCount(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, marker := range subjectiveMarkers {
		hits += strings.Count(lower, marker)
	}
	return hits
}

// CountURLs returns the number of distinct URL-like substrings in text.
func CountURLs(text string) int {
	seen := make(map[string]struct{})
	for _, u := range urlRe.FindAllString(text, -1) {
		seen[u] = struct{}{}
	}
	return len(seen)
}

// Heuristic is the built-in scorer: a bounded linear score over text
// features, starting from a neutral baseline. No randomness, no external
// state.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Score(_ context.Context, _ string, noteText string) (Result, error) {
	score := 0.5

	// Penalize opinion language, capped so the penalty alone cannot push
	// the score below zero.
	hits := SubjectiveMarkerCount(noteText)
	if hits > 6 {
		hits = 6
	}
	score -= 0.05 * float64(hits)

	// Reward sourcing and specificity. Only the presence of a URL counts;
	// extra URLs earn nothing more.
	urlCount := CountURLs(noteText)
	if urlCount >= 1 {
		score += 0.2
	}
	if figuresRe.MatchString(noteText) {
		score += 0.05
	}
	if strings.ContainsAny(noteText, `"'`) {
		score += 0.05
	}

	return Result{
		ClaimOpinionScore: clamp(score),
		URLPass:           urlCount >= 1,
		URLCount:          urlCount,
	}, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
