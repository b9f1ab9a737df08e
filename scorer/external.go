package scorer

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// EvaluateFunc is an externally supplied scoring capability, e.g. a wrapper
// around the official evaluate_note endpoint. It returns the evaluator's raw
// response payload.
type EvaluateFunc func(ctx context.Context, postText, noteText string) (json.RawMessage, error)

// External delegates scoring to an injected evaluator and preserves its raw
// payload. Any failure, whether the capability is absent or the call errors,
// falls back to the heuristic: the caller sees the same Result shape with a
// nil RawPayload.
type External struct {
	evaluate EvaluateFunc
	fallback *Heuristic
}

func NewExternal(evaluate EvaluateFunc) *External {
	return &External{
		evaluate: evaluate,
		fallback: NewHeuristic(),
	}
}

func (e *External) Score(ctx context.Context, postText, noteText string) (Result, error) {
	if e.evaluate == nil {
		return e.fallback.Score(ctx, postText, noteText)
	}

	raw, err := e.evaluate(ctx, postText, noteText)
	if err != nil {
		return e.fallback.Score(ctx, postText, noteText)
	}

	score := gjson.GetBytes(raw, "noteContent.claimOpinionScore").Float()
	urlCount := CountURLs(noteText)

	return Result{
		ClaimOpinionScore: clamp(score),
		URLPass:           urlCount >= 1,
		URLCount:          urlCount,
		RawPayload:        raw,
	}, nil
}
