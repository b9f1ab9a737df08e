// Package engine runs the note decision pipeline: draft, score, optionally
// rewrite, pick the best candidate, and submit or skip, one post at a time
// per enabled writer.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"notewriter-lab/models"
	"notewriter-lab/notetext"
	"notewriter-lab/scorer"
	"notewriter-lab/tags"
	"notewriter-lab/xclient"
)

// Generator drafts and rewrites note text.
type Generator interface {
	GenerateNote(ctx context.Context, tweet models.Tweet, writer models.WriterConfig) (string, error)
	RewriteNote(ctx context.Context, tweet models.Tweet, writer models.WriterConfig, currentNote, weaknessSummary string) (string, error)
}

// PostFetcher pulls posts eligible for Community Notes.
type PostFetcher interface {
	FetchEligiblePosts(ctx context.Context, maxResults int, testMode bool) ([]xclient.EligiblePost, error)
}

// Submitter submits notes and exposes the platform's allowed tag enum.
type Submitter interface {
	SubmitNote(ctx context.Context, payload xclient.SubmitNotePayload) (json.RawMessage, error)
	AllowedMisleadingTags(ctx context.Context, postID string) []string
}

// Outcome is the terminal state of one processed post.
type Outcome string

const (
	OutcomeSubmitted         Outcome = "submitted"
	OutcomeFailedSubmission  Outcome = "failed-submission"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeWriterConfigError Outcome = "writer-config-error"
)

// PostResult records the terminal outcome for one (writer, post) pair.
type PostResult struct {
	Writer  string
	PostID  string
	Outcome Outcome
	Detail  string
}

// RunReport collects every per-post outcome of a run; no outcome is silently
// dropped.
type RunReport struct {
	Results []PostResult
}

func (r RunReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Engine sequences the per-post state machine for every enabled writer.
type Engine struct {
	db          *gorm.DB
	fetcher     PostFetcher
	submitter   Submitter
	generator   Generator
	scorer      scorer.Scorer
	selector    tags.Selector
	maxNotesCap int
	logger      *slog.Logger
}

func New(
	db *gorm.DB,
	fetcher PostFetcher,
	submitter Submitter,
	generator Generator,
	sc scorer.Scorer,
	selector tags.Selector,
	maxNotesCap int,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:          db,
		fetcher:     fetcher,
		submitter:   submitter,
		generator:   generator,
		scorer:      sc,
		selector:    selector,
		maxNotesCap: maxNotesCap,
		logger:      logger,
	}
}

// Run is a single bounded pass over all enabled writers. Failures processing
// one post never abort the remaining posts or writers.
func (e *Engine) Run(ctx context.Context) (RunReport, error) {
	var report RunReport

	var writers []models.WriterConfig
	if err := e.db.Where("enabled = ?", true).Order("id asc").Find(&writers).Error; err != nil {
		return report, fmt.Errorf("load writers: %w", err)
	}

	for _, writer := range writers {
		if err := validateWriter(writer); err != nil {
			e.logger.Error("skipping writer for this run", "writer", writer.Name, "err", err)
			report.Results = append(report.Results, PostResult{
				Writer:  writer.Name,
				Outcome: OutcomeWriterConfigError,
				Detail:  err.Error(),
			})
			continue
		}
		e.runWriter(ctx, writer, &report)
	}

	return report, nil
}

func validateWriter(w models.WriterConfig) error {
	if strings.TrimSpace(w.Prompt) == "" {
		return &ConfigurationError{Writer: w.Name, Reason: "prompt is empty"}
	}
	if w.SubmitMinScore < 0 || w.SubmitMinScore > 1 || w.RewriteMinScore < 0 || w.RewriteMinScore > 1 {
		return &ConfigurationError{Writer: w.Name, Reason: "score thresholds must be within [0, 1]"}
	}
	if w.RewriteMinScore > w.SubmitMinScore {
		return &ConfigurationError{
			Writer: w.Name,
			Reason: fmt.Sprintf("rewrite_min_score %.2f exceeds submit_min_score %.2f",
				w.RewriteMinScore, w.SubmitMinScore),
		}
	}
	if w.MaxNotesPerRun < 0 {
		return &ConfigurationError{Writer: w.Name, Reason: "max_notes_per_run is negative"}
	}
	return nil
}

func (e *Engine) runWriter(ctx context.Context, writer models.WriterConfig, report *RunReport) {
	maxNotes := writer.MaxNotesPerRun
	if e.maxNotesCap < maxNotes {
		maxNotes = e.maxNotesCap
	}
	if maxNotes <= 0 {
		return
	}

	posts, err := e.fetcher.FetchEligiblePosts(ctx, maxNotes, true)
	if err != nil {
		e.logger.Error("eligible posts fetch failed", "writer", writer.Name, "err", err)
		return
	}
	if len(posts) > maxNotes {
		posts = posts[:maxNotes]
	}

	for _, post := range posts {
		res := e.processPost(ctx, writer, post)
		report.Results = append(report.Results, res)
		e.logger.Info("post processed",
			"writer", writer.Name, "post", res.PostID, "outcome", res.Outcome, "detail", res.Detail)
	}
}

// processPost walks one post through draft, score, optional rewrite, best-of
// selection, and the submit-or-skip decision. It always reaches a terminal
// outcome.
func (e *Engine) processPost(ctx context.Context, writer models.WriterConfig, post xclient.EligiblePost) PostResult {
	result := PostResult{Writer: writer.Name, PostID: post.ExternalID()}

	tweet, err := e.upsertTweet(post)
	if err != nil {
		result.Outcome = OutcomeSkipped
		result.Detail = err.Error()
		return result
	}

	draftText, err := e.generator.GenerateNote(ctx, tweet, writer)
	if err != nil {
		genErr := &GenerationError{Stage: models.StageDraft, Err: err}
		e.logger.Warn("draft generation failed", "writer", writer.Name, "post", tweet.TweetID, "err", err)
		result.Outcome = OutcomeSkipped
		result.Detail = genErr.Error()
		return result
	}

	draft, draftScore, err := e.recordNote(ctx, writer, tweet, models.StageDraft, draftText, nil)
	if err != nil {
		result.Outcome = OutcomeSkipped
		result.Detail = err.Error()
		return result
	}

	best, bestScore := draft, draftScore

	if writer.RewritePrompt != "" &&
		draftScore.ClaimOpinionScore >= writer.RewriteMinScore &&
		draftScore.ClaimOpinionScore < writer.SubmitMinScore {

		weakness := weaknessSummary(draftText, draftScore, writer.SubmitMinScore)
		rewriteText, err := e.generator.RewriteNote(ctx, tweet, writer, draftText, weakness)
		if err != nil {
			// Rewrite failures fall back to the draft candidate.
			e.logger.Warn("rewrite generation failed, keeping draft",
				"writer", writer.Name, "post", tweet.TweetID, "err", err)
		} else {
			rewrite, rewriteScore, err := e.recordNote(ctx, writer, tweet, models.StageRewrite, rewriteText, &draft.ID)
			if err != nil {
				e.logger.Warn("rewrite scoring failed, keeping draft",
					"writer", writer.Name, "post", tweet.TweetID, "err", err)
			} else if rewriteScore.ClaimOpinionScore > draftScore.ClaimOpinionScore {
				// Ties favor the draft: fewer generation artifacts.
				best, bestScore = rewrite, rewriteScore
			}
		}
	}

	if bestScore.ClaimOpinionScore < writer.SubmitMinScore || !bestScore.URLPass || bestScore.URLCount == 0 {
		result.Outcome = OutcomeSkipped
		result.Detail = fmt.Sprintf("best candidate score %.2f (threshold %.2f, urls %d)",
			bestScore.ClaimOpinionScore, writer.SubmitMinScore, bestScore.URLCount)
		return result
	}

	return e.attemptSubmit(ctx, writer, tweet, best, result)
}

// recordNote scores the candidate text, then persists the note together with
// its score. A note row never exists without a matching score row.
func (e *Engine) recordNote(
	ctx context.Context,
	writer models.WriterConfig,
	tweet models.Tweet,
	stage, text string,
	parentID *uint,
) (models.Note, scorer.Result, error) {
	res, err := e.scorer.Score(ctx, tweet.Text, text)
	if err != nil {
		return models.Note{}, scorer.Result{}, fmt.Errorf("score %s note: %w", stage, err)
	}

	note := models.Note{
		WriterID:     writer.ID,
		TweetID:      tweet.ID,
		Stage:        stage,
		Text:         text,
		ParentNoteID: parentID,
	}
	// Note and score land together or not at all.
	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&note).Error; err != nil {
			return fmt.Errorf("persist %s note: %w", stage, err)
		}
		score := models.NoteScore{
			NoteID:            note.ID,
			ClaimOpinionScore: res.ClaimOpinionScore,
			URLPass:           res.URLPass,
			URLCount:          res.URLCount,
			RawPayload:        res.RawPayload,
		}
		if err := tx.Create(&score).Error; err != nil {
			return fmt.Errorf("persist %s note score: %w", stage, err)
		}
		return nil
	})
	if err != nil {
		return models.Note{}, scorer.Result{}, err
	}

	return note, res, nil
}

// attemptSubmit selects tags, normalizes and validates the candidate text,
// and either submits it or records why it could not be sent. Validation
// failures never reach the API.
func (e *Engine) attemptSubmit(
	ctx context.Context,
	writer models.WriterConfig,
	tweet models.Tweet,
	note models.Note,
	result PostResult,
) PostResult {
	allowed := e.submitter.AllowedMisleadingTags(ctx, tweet.TweetID)
	tagList := e.selector.Choose(ctx, tweet, note.Text, allowed)

	text := notetext.Normalize(note.Text, notetext.MaxNoteLength)
	if violations := notetext.Validate(text); len(violations) > 0 {
		vErr := &ValidationError{Violations: violations}
		e.recordSubmission(writer, tweet, note, models.StatusFailed, nil, vErr.Error())
		result.Outcome = OutcomeFailedSubmission
		result.Detail = vErr.Error()
		return result
	}

	payload := xclient.SubmitNotePayload{
		Info: xclient.NoteInfo{
			Classification:     xclient.ClassificationMisleading,
			MisleadingTags:     tagList,
			Text:               text,
			TrustworthySources: true,
		},
		PostID:   tweet.TweetID,
		TestMode: true,
	}

	resp, err := e.submitter.SubmitNote(ctx, payload)
	if err != nil {
		sErr := &SubmissionError{Err: err}
		e.recordSubmission(writer, tweet, note, models.StatusFailed, nil, sErr.Error())
		result.Outcome = OutcomeFailedSubmission
		result.Detail = sErr.Error()
		return result
	}

	e.recordSubmission(writer, tweet, note, models.StatusSubmitted, resp, "")
	result.Outcome = OutcomeSubmitted
	return result
}

func (e *Engine) recordSubmission(
	writer models.WriterConfig,
	tweet models.Tweet,
	note models.Note,
	status string,
	apiResponse []byte,
	errorMessage string,
) {
	sub := models.Submission{
		NoteID:       note.ID,
		WriterID:     writer.ID,
		TweetID:      tweet.ID,
		TestMode:     true,
		Status:       status,
		APIResponse:  apiResponse,
		ErrorMessage: errorMessage,
	}
	if err := e.db.Create(&sub).Error; err != nil {
		e.logger.Error("persist submission failed",
			"writer", writer.Name, "post", tweet.TweetID, "err", err)
	}
}

// upsertTweet stores a source post on first sight; repeat sightings return
// the existing row untouched.
func (e *Engine) upsertTweet(post xclient.EligiblePost) (models.Tweet, error) {
	id := post.ExternalID()
	if id == "" {
		return models.Tweet{}, errors.New("eligible post missing id field")
	}

	var tweet models.Tweet
	err := e.db.Where("tweet_id = ?", id).First(&tweet).Error
	if err == nil {
		return tweet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Tweet{}, fmt.Errorf("look up tweet %s: %w", id, err)
	}

	tweet = models.Tweet{
		TweetID:      id,
		Text:         post.Text,
		AuthorID:     post.Author.ID,
		AuthorHandle: post.AuthorHandle(),
		Language:     post.Language,
	}
	if ts, perr := time.Parse(time.RFC3339, post.CreatedAt); perr == nil {
		tweet.TweetCreatedAt = &ts
	}
	if err := e.db.Create(&tweet).Error; err != nil {
		return models.Tweet{}, fmt.Errorf("persist tweet %s: %w", id, err)
	}
	return tweet, nil
}

// weaknessSummary tells the rewrite prompt which scorer rules the draft
// failed to satisfy.
func weaknessSummary(noteText string, res scorer.Result, submitMin float64) string {
	var parts []string
	if !res.URLPass {
		parts = append(parts, "add a source URL from a high-quality publication")
	}
	if scorer.SubjectiveMarkerCount(noteText) > 0 {
		parts = append(parts, "reduce subjective or opinion language")
	}
	parts = append(parts, fmt.Sprintf(
		"tie the note to specific verifiable claims; current score %.2f is below the %.2f submission threshold",
		res.ClaimOpinionScore, submitMin))
	return strings.Join(parts, "; ")
}
