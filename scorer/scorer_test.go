package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heuristicScore(t *testing.T, noteText string) Result {
	t.Helper()
	res, err := NewHeuristic().Score(context.Background(), "post text", noteText)
	require.NoError(t, err)
	return res
}

func TestHeuristicBounds(t *testing.T) {
	inputs := []string{
		"",
		"plain note",
		strings.Repeat("should must clearly obviously ", 10),
		`"quote" 99% https://a.example https://b.example with figures 2024`,
	}
	for _, text := range inputs {
		res := heuristicScore(t, text)
		assert.GreaterOrEqual(t, res.ClaimOpinionScore, 0.0, "input %q", text)
		assert.LessOrEqual(t, res.ClaimOpinionScore, 1.0, "input %q", text)
	}
}

func TestHeuristicBaseline(t *testing.T) {
	res := heuristicScore(t, "a neutral note with no marker at all")
	assert.InDelta(t, 0.5, res.ClaimOpinionScore, 1e-9)
	assert.False(t, res.URLPass)
	assert.Zero(t, res.URLCount)
	assert.Nil(t, res.RawPayload)
}

func TestHeuristicURLBonusIsPresenceOnly(t *testing.T) {
	one := heuristicScore(t, "see https://example.com/a")
	two := heuristicScore(t, "see https://example.com/a and https://example.com/b")

	assert.InDelta(t, 0.7, one.ClaimOpinionScore, 1e-9)
	assert.InDelta(t, one.ClaimOpinionScore, two.ClaimOpinionScore, 1e-9)
	assert.Equal(t, 1, one.URLCount)
	assert.Equal(t, 2, two.URLCount)
	assert.True(t, two.URLPass)
}

func TestHeuristicDuplicateURLsCountOnce(t *testing.T) {
	res := heuristicScore(t, "https://example.com/a and again https://example.com/a")
	assert.Equal(t, 1, res.URLCount)
}

func TestHeuristicSubjectivePenalty(t *testing.T) {
	neutral := heuristicScore(t, "the report states the total")
	hedged := heuristicScore(t, "i think the report clearly states what it should")

	// three hits: "i think", "clearly", "should"
	assert.InDelta(t, neutral.ClaimOpinionScore-0.15, hedged.ClaimOpinionScore, 1e-9)
}

func TestHeuristicPenaltyCapped(t *testing.T) {
	res := heuristicScore(t, strings.Repeat("obviously ", 20))
	assert.InDelta(t, 0.2, res.ClaimOpinionScore, 1e-9)
}

func TestHeuristicFiguresAndQuotes(t *testing.T) {
	res := heuristicScore(t, `the filing reports 312 units, quote: "not materially higher"`)
	assert.InDelta(t, 0.6, res.ClaimOpinionScore, 1e-9)
}

func TestHeuristicDeterministic(t *testing.T) {
	text := `mixed note, should see https://example.com "quoted" 42%`
	first := heuristicScore(t, text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, heuristicScore(t, text))
	}
}

func TestSubjectiveMarkerCountCaseInsensitive(t *testing.T) {
	assert.Equal(t, 2, SubjectiveMarkerCount("Clearly this MUST change"))
	assert.Zero(t, SubjectiveMarkerCount("no markers here"))
}

func TestExternalUsesEvaluatorPayload(t *testing.T) {
	payload := json.RawMessage(`{"noteContent":{"claimOpinionScore":0.83}}`)
	s := NewExternal(func(_ context.Context, _, _ string) (json.RawMessage, error) {
		return payload, nil
	})

	res, err := s.Score(context.Background(), "post", "note with https://example.com/a")
	require.NoError(t, err)

	assert.InDelta(t, 0.83, res.ClaimOpinionScore, 1e-9)
	assert.True(t, res.URLPass)
	assert.Equal(t, 1, res.URLCount)
	assert.JSONEq(t, string(payload), string(res.RawPayload))
}

func TestExternalClampsEvaluatorScore(t *testing.T) {
	s := NewExternal(func(_ context.Context, _, _ string) (json.RawMessage, error) {
		return json.RawMessage(`{"noteContent":{"claimOpinionScore":1.7}}`), nil
	})
	res, err := s.Score(context.Background(), "post", "note")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.ClaimOpinionScore)
}

func TestExternalFallsBackOnError(t *testing.T) {
	s := NewExternal(func(_ context.Context, _, _ string) (json.RawMessage, error) {
		return nil, errors.New("evaluator unavailable")
	})

	res, err := s.Score(context.Background(), "post", "see https://example.com/a")
	require.NoError(t, err)

	assert.InDelta(t, 0.7, res.ClaimOpinionScore, 1e-9)
	assert.Nil(t, res.RawPayload)
}

func TestExternalFallsBackWhenAbsent(t *testing.T) {
	s := NewExternal(nil)
	res, err := s.Score(context.Background(), "post", "plain note")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.ClaimOpinionScore, 1e-9)
	assert.Nil(t, res.RawPayload)
}
