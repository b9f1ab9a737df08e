package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"notewriter-lab/config"
	"notewriter-lab/models"
)

var db *gorm.DB

// Init opens the SQLite database and stores the handle for Get.
func Init(path string) error {
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database %s: %w", path, err)
	}
	db = conn
	return nil
}

func Get() *gorm.DB {
	return db
}

// Migrate creates or updates all lab tables.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.WriterConfig{},
		&models.Tweet{},
		&models.Note{},
		&models.NoteScore{},
		&models.Submission{},
	)
}

// SeedExampleWriters inserts the two stock writers when the writers table is
// empty. Safe to call repeatedly.
func SeedExampleWriters(conn *gorm.DB, settings config.Settings) error {
	var existing int64
	if err := conn.Model(&models.WriterConfig{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	conservative := models.WriterConfig{
		Name: "Grok Conservative",
		Description: "High-precision writer aimed at only submitting very strong, " +
			"well-sourced notes.",
		Prompt: "You are drafting a Community Note on X.\n\n" +
			"Tweet:\n{tweet_text}\n\n" +
			"Write a concise, neutral note that:\n" +
			"- Focuses on verifiable claims in the tweet\n" +
			"- Provides citations or URLs to high-quality sources\n" +
			"- Avoids editorialising, personal opinions, or insults\n" +
			"- Uses clear, simple language and fits comfortably within a 280-character Community Note limit.",
		RewritePrompt: "You are editing a Community Note that is not strong enough yet.\n\n" +
			"Tweet:\n{tweet_text}\n\n" +
			"Current note:\n{current_note}\n\n" +
			"Weaknesses:\n{weakness_summary}\n\n" +
			"Rewrite the note to be:\n" +
			"- More clearly tied to specific claims in the tweet\n" +
			"- Better sourced, with at least one high-quality URL if possible\n" +
			"- Neutral in tone and free of opinion language.\n" +
			"Keep it concise enough to fit within 280 characters.",
		RewriteMinScore: settings.DefaultRewriteMinScore,
		SubmitMinScore:  settings.DefaultSubmitMinScore,
		MaxNotesPerRun:  settings.MaxNotesPerWriterPerRun,
		Enabled:         true,
	}

	exploratory := models.WriterConfig{
		Name: "Grok Exploratory",
		Description: "More exploratory writer that takes swings on borderline notes " +
			"to learn about thresholds.",
		Prompt: "You are drafting a Community Note for this tweet:\n\n" +
			"{tweet_text}\n\n" +
			"Write a note that:\n" +
			"- Identifies the main factual claim or implication\n" +
			"- Provides context or counter-evidence from credible sources\n" +
			"- Mentions limitations or uncertainty where appropriate\n" +
			"- Stays neutral, focuses on what readers should know, and remains within a 280-character Community Note length.",
		RewriteMinScore: settings.DefaultRewriteMinScore,
		SubmitMinScore:  maxFloat(settings.DefaultSubmitMinScore-0.1, 0.5),
		MaxNotesPerRun:  settings.MaxNotesPerWriterPerRun,
		Enabled:         true,
	}

	return conn.Create([]*models.WriterConfig{&conservative, &exploratory}).Error
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
