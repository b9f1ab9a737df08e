package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Settings is the process-wide configuration, read once at startup. Core
// components take these as plain values and never touch the environment.
type Settings struct {
	// SQLite database file.
	DatabasePath string

	// X / Community Notes API.
	XBearerToken string
	EligibleURL  string
	SubmitURL    string

	// Grok / xAI (OpenAI-compatible chat completions).
	GrokAPIKey string
	GrokAPIURL string
	GrokModel  string

	// Lab behaviour.
	MaxNotesPerWriterPerRun int
	DefaultSubmitMinScore   float64
	DefaultRewriteMinScore  float64
}

// Load reads settings from the environment, with a .env file at the working
// directory filling in anything not already set.
func Load() Settings {
	_ = godotenv.Load()

	return Settings{
		DatabasePath: getenvStr("LAB_DATABASE_PATH", "lab.sqlite3"),

		XBearerToken: getenvStr("X_BEARER_TOKEN", ""),
		EligibleURL:  getenvStr("X_COMMUNITY_NOTES_ELIGIBLE_URL", ""),
		SubmitURL:    getenvStr("X_COMMUNITY_NOTES_SUBMIT_URL", ""),

		GrokAPIKey: firstNonEmpty(os.Getenv("GROK_API_KEY"), os.Getenv("XAI_API_KEY")),
		GrokAPIURL: getenvStr("GROK_API_URL", "https://api.x.ai/v1"),
		GrokModel:  getenvStr("GROK_MODEL", "grok-4-fast-reasoning"),

		MaxNotesPerWriterPerRun: getenvInt("LAB_MAX_NOTES_PER_WRITER_PER_RUN", 5),
		DefaultSubmitMinScore:   getenvFloat("LAB_DEFAULT_SUBMIT_MIN_SCORE", 0.75),
		DefaultRewriteMinScore:  getenvFloat("LAB_DEFAULT_REWRITE_MIN_SCORE", 0.4),
	}
}

func getenvStr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getenvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
