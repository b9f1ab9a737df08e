package metrics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"notewriter-lab/database"
	"notewriter-lab/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedNote(t *testing.T, db *gorm.DB, writer models.WriterConfig, stage string, score float64, urlPass bool) models.Note {
	t.Helper()
	note := models.Note{WriterID: writer.ID, TweetID: 1, Stage: stage, Text: "note text"}
	require.NoError(t, db.Create(&note).Error)
	require.NoError(t, db.Create(&models.NoteScore{
		NoteID:            note.ID,
		ClaimOpinionScore: score,
		URLPass:           urlPass,
		URLCount:          1,
	}).Error)
	return note
}

func TestComputeLabMetrics(t *testing.T) {
	db := openTestDB(t)
	writer := models.WriterConfig{Name: "w", Prompt: "p", SubmitMinScore: 0.75}
	require.NoError(t, db.Create(&writer).Error)

	seedNote(t, db, writer, models.StageDraft, 0.8, true)
	seedNote(t, db, writer, models.StageDraft, 0.6, false)
	seedNote(t, db, writer, models.StageRewrite, 0.9, true)

	m, err := ComputeLabMetrics(db, writer)
	require.NoError(t, err)

	assert.EqualValues(t, 3, m.TotalNotes)
	assert.EqualValues(t, 1, m.RewriteCount)
	require.NotNil(t, m.AvgScore)
	assert.InDelta(t, (0.8+0.6+0.9)/3, *m.AvgScore, 1e-9)
	assert.InDelta(t, 100.0*2/3, m.PctAboveSubmitThreshold, 1e-9)
}

func TestComputeLabMetricsEmpty(t *testing.T) {
	db := openTestDB(t)
	writer := models.WriterConfig{Name: "w", Prompt: "p"}
	require.NoError(t, db.Create(&writer).Error)

	m, err := ComputeLabMetrics(db, writer)
	require.NoError(t, err)

	assert.Zero(t, m.TotalNotes)
	assert.Nil(t, m.AvgScore)
}

func TestComputeLabMetricsIgnoresOtherWriters(t *testing.T) {
	db := openTestDB(t)
	mine := models.WriterConfig{Name: "mine", Prompt: "p", SubmitMinScore: 0.75}
	other := models.WriterConfig{Name: "other", Prompt: "p", SubmitMinScore: 0.75}
	require.NoError(t, db.Create(&mine).Error)
	require.NoError(t, db.Create(&other).Error)

	seedNote(t, db, mine, models.StageDraft, 0.8, true)
	seedNote(t, db, other, models.StageDraft, 0.2, false)

	m, err := ComputeLabMetrics(db, mine)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.TotalNotes)
	require.NotNil(t, m.AvgScore)
	assert.InDelta(t, 0.8, *m.AvgScore, 1e-9)
}

func TestComputeAdmissionMetrics(t *testing.T) {
	db := openTestDB(t)
	writer := models.WriterConfig{Name: "w", Prompt: "p", SubmitMinScore: 0.75}
	require.NoError(t, db.Create(&writer).Error)

	high := seedNote(t, db, writer, models.StageDraft, 0.9, true)
	low := seedNote(t, db, writer, models.StageDraft, 0.5, false)
	for _, note := range []models.Note{high, low} {
		require.NoError(t, db.Create(&models.Submission{
			NoteID:   note.ID,
			WriterID: writer.ID,
			TweetID:  1,
			TestMode: true,
			Status:   models.StatusSubmitted,
		}).Error)
	}

	m, err := ComputeAdmissionMetrics(db, writer)
	require.NoError(t, err)

	assert.Equal(t, 2, m.SampleSize)
	assert.InDelta(t, 50.0, m.HighScorePct, 1e-9)
	assert.InDelta(t, 50.0, m.LowScorePct, 1e-9)
	assert.InDelta(t, 50.0, m.URLPassPct, 1e-9)
}

func TestComputeAdmissionMetricsNoSubmissions(t *testing.T) {
	db := openTestDB(t)
	writer := models.WriterConfig{Name: "w", Prompt: "p"}
	require.NoError(t, db.Create(&writer).Error)

	m, err := ComputeAdmissionMetrics(db, writer)
	require.NoError(t, err)
	assert.Zero(t, m.SampleSize)
}

func TestBuildWriterDashboard(t *testing.T) {
	db := openTestDB(t)
	writer := models.WriterConfig{Name: "w", Prompt: "p", SubmitMinScore: 0.75}
	require.NoError(t, db.Create(&writer).Error)

	seedNote(t, db, writer, models.StageDraft, 0.8, true)
	seedNote(t, db, writer, models.StageRewrite, 0.85, true)

	dash, err := BuildWriterDashboard(db, writer, 10)
	require.NoError(t, err)

	assert.Equal(t, writer.Name, dash.Writer.Name)
	assert.EqualValues(t, 2, dash.Lab.TotalNotes)
	require.Len(t, dash.RecentNotes, 2)
	for _, rn := range dash.RecentNotes {
		require.NotNil(t, rn.Score)
	}
}

func TestBuildWriterDashboardRespectsLimit(t *testing.T) {
	db := openTestDB(t)
	writer := models.WriterConfig{Name: "w", Prompt: "p"}
	require.NoError(t, db.Create(&writer).Error)

	for i := 0; i < 5; i++ {
		seedNote(t, db, writer, models.StageDraft, 0.5, true)
	}

	dash, err := BuildWriterDashboard(db, writer, 3)
	require.NoError(t, err)
	assert.Len(t, dash.RecentNotes, 3)
}
