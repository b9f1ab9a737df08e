package models

import "time"

// Note stages.
const (
	StageDraft   = "draft"
	StageRewrite = "rewrite"
)

// Submission statuses.
const (
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// WriterConfig is one independent note-generation policy: prompts plus
// thresholds. Immutable during a run.
type WriterConfig struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;size:128;not null"`
	Description string `json:"description"`

	Prompt        string `json:"prompt" gorm:"not null"`
	RewritePrompt string `json:"rewrite_prompt"`

	RewriteMinScore float64 `json:"rewrite_min_score" gorm:"not null;default:0.4"`
	SubmitMinScore  float64 `json:"submit_min_score" gorm:"not null;default:0.75"`

	MaxNotesPerRun int  `json:"max_notes_per_run" gorm:"not null;default:5"`
	Enabled        bool `json:"enabled" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
}

func (WriterConfig) TableName() string { return "writers" }

// Tweet is a source post, created on first sight and never mutated.
type Tweet struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	TweetID      string `json:"tweet_id" gorm:"uniqueIndex;size:64"`
	AuthorID     string `json:"author_id" gorm:"size:64"`
	AuthorHandle string `json:"author_handle" gorm:"size:64"`
	Text         string `json:"text" gorm:"not null"`
	Language     string `json:"language" gorm:"size:8"`

	TweetCreatedAt *time.Time `json:"tweet_created_at"`
	CollectedAt    time.Time  `json:"collected_at" gorm:"autoCreateTime"`
}

// Note is a generated annotation, either a first draft or a rewrite derived
// from one. Text is raw model output, pre-normalization.
type Note struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	WriterID uint `json:"writer_id" gorm:"index;not null"`
	TweetID  uint `json:"tweet_id" gorm:"index;not null"`

	Stage string `json:"stage" gorm:"size:16;not null;default:draft"`
	Text  string `json:"text" gorm:"not null"`

	// Set only on rewrites, pointing at the draft they were derived from.
	ParentNoteID *uint `json:"parent_note_id"`

	CreatedAt time.Time `json:"created_at"`
}

// NoteScore is the 1-1 evaluation of a note. RawPayload is non-nil only when
// an external evaluator produced the score.
type NoteScore struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	NoteID uint `json:"note_id" gorm:"uniqueIndex;not null"`

	ClaimOpinionScore float64 `json:"claim_opinion_score" gorm:"not null"`
	URLPass           bool    `json:"url_pass" gorm:"not null;default:true"`
	URLCount          int     `json:"url_count" gorm:"not null;default:0"`

	RawPayload []byte `json:"raw_payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Submission records one submit attempt for a note, always in test mode.
type Submission struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	NoteID   uint `json:"note_id" gorm:"index;not null"`
	WriterID uint `json:"writer_id" gorm:"index;not null"`
	TweetID  uint `json:"tweet_id" gorm:"index;not null"`

	TestMode bool   `json:"test_mode" gorm:"not null;default:true"`
	Status   string `json:"status" gorm:"size:32;not null;default:submitted"`

	APIResponse  []byte `json:"api_response,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
