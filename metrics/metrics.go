// Package metrics aggregates per-writer lab statistics for the dashboard.
package metrics

import (
	"gorm.io/gorm"

	"notewriter-lab/models"
)

// AdmissionMetrics summarizes the scores behind a writer's most recent
// test-mode submissions.
type AdmissionMetrics struct {
	HighScorePct float64 `json:"high_score_pct"`
	LowScorePct  float64 `json:"low_score_pct"`
	URLPassPct   float64 `json:"url_pass_pct"`
	SampleSize   int     `json:"sample_size"`
}

// LabMetrics summarizes everything a writer has drafted, submitted or not.
type LabMetrics struct {
	AvgScore                *float64 `json:"avg_score"`
	PctAboveSubmitThreshold float64  `json:"pct_above_submit_threshold"`
	RewriteCount            int64    `json:"rewrite_count"`
	TotalNotes              int64    `json:"total_notes"`
}

// RecentNote pairs a note with its score for display.
type RecentNote struct {
	Note  models.Note       `json:"note"`
	Score *models.NoteScore `json:"score,omitempty"`
}

// WriterDashboard is everything the dashboard shows for one writer.
type WriterDashboard struct {
	Writer      models.WriterConfig `json:"writer"`
	Admission   AdmissionMetrics    `json:"admission"`
	Lab         LabMetrics          `json:"lab"`
	RecentNotes []RecentNote        `json:"recent_notes"`
}

// ComputeAdmissionMetrics looks at the scores behind the writer's last 50
// test-mode submissions.
func ComputeAdmissionMetrics(db *gorm.DB, writer models.WriterConfig) (AdmissionMetrics, error) {
	var submissions []models.Submission
	err := db.
		Where("writer_id = ? AND test_mode = ?", writer.ID, true).
		Order("created_at DESC").
		Limit(50).
		Find(&submissions).Error
	if err != nil {
		return AdmissionMetrics{}, err
	}
	if len(submissions) == 0 {
		return AdmissionMetrics{}, nil
	}

	noteIDs := make([]uint, 0, len(submissions))
	for _, s := range submissions {
		noteIDs = append(noteIDs, s.NoteID)
	}

	var scores []models.NoteScore
	if err := db.Where("note_id IN ?", noteIDs).Find(&scores).Error; err != nil {
		return AdmissionMetrics{}, err
	}

	n := len(scores)
	if n == 0 {
		return AdmissionMetrics{}, nil
	}

	high, urlPass := 0, 0
	for _, sc := range scores {
		if sc.ClaimOpinionScore >= writer.SubmitMinScore {
			high++
		}
		if sc.URLPass {
			urlPass++
		}
	}

	return AdmissionMetrics{
		HighScorePct: 100.0 * float64(high) / float64(n),
		LowScorePct:  100.0 * float64(n-high) / float64(n),
		URLPassPct:   100.0 * float64(urlPass) / float64(n),
		SampleSize:   n,
	}, nil
}

// ComputeLabMetrics aggregates over every scored note the writer produced.
func ComputeLabMetrics(db *gorm.DB, writer models.WriterConfig) (LabMetrics, error) {
	scored := db.Model(&models.NoteScore{}).
		Joins("JOIN notes ON notes.id = note_scores.note_id").
		Where("notes.writer_id = ?", writer.ID)

	var total int64
	if err := scored.Count(&total).Error; err != nil {
		return LabMetrics{}, err
	}

	m := LabMetrics{TotalNotes: total}

	if err := db.Model(&models.Note{}).
		Where("writer_id = ? AND stage = ?", writer.ID, models.StageRewrite).
		Count(&m.RewriteCount).Error; err != nil {
		return LabMetrics{}, err
	}

	if total == 0 {
		return m, nil
	}

	var avg float64
	if err := db.Model(&models.NoteScore{}).
		Joins("JOIN notes ON notes.id = note_scores.note_id").
		Where("notes.writer_id = ?", writer.ID).
		Select("AVG(note_scores.claim_opinion_score)").
		Scan(&avg).Error; err != nil {
		return LabMetrics{}, err
	}
	m.AvgScore = &avg

	var above int64
	if err := db.Model(&models.NoteScore{}).
		Joins("JOIN notes ON notes.id = note_scores.note_id").
		Where("notes.writer_id = ? AND note_scores.claim_opinion_score >= ?",
			writer.ID, writer.SubmitMinScore).
		Count(&above).Error; err != nil {
		return LabMetrics{}, err
	}
	m.PctAboveSubmitThreshold = 100.0 * float64(above) / float64(total)

	return m, nil
}

// BuildWriterDashboard assembles metrics plus the writer's most recent
// notes.
func BuildWriterDashboard(db *gorm.DB, writer models.WriterConfig, recentLimit int) (WriterDashboard, error) {
	admission, err := ComputeAdmissionMetrics(db, writer)
	if err != nil {
		return WriterDashboard{}, err
	}
	lab, err := ComputeLabMetrics(db, writer)
	if err != nil {
		return WriterDashboard{}, err
	}

	var notes []models.Note
	err = db.Where("writer_id = ?", writer.ID).
		Order("created_at DESC").
		Limit(recentLimit).
		Find(&notes).Error
	if err != nil {
		return WriterDashboard{}, err
	}

	recent := make([]RecentNote, 0, len(notes))
	for _, note := range notes {
		item := RecentNote{Note: note}
		var score models.NoteScore
		if err := db.Where("note_id = ?", note.ID).First(&score).Error; err == nil {
			item.Score = &score
		}
		recent = append(recent, item)
	}

	return WriterDashboard{
		Writer:      writer,
		Admission:   admission,
		Lab:         lab,
		RecentNotes: recent,
	}, nil
}
