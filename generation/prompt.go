package generation

import (
	"strings"

	"notewriter-lab/models"
)

// System prompts keep Grok on the plain single-paragraph contract the
// Community Notes API expects; structure is still normalized afterwards.
const (
	noteSystemPrompt = "You are an expert Community Notes contributor. " +
		"You write concise, neutral, well-sourced notes that help readers " +
		"better understand context and verify claims. " +
		"Your response must be a single paragraph of plain English text with " +
		"no markdown, no headings or titles, no bullet points, and no code blocks."

	rewriteSystemPrompt = "You are an expert Community Notes editor. " +
		"Your job is to improve an existing note while preserving factual accuracy. " +
		"Your response must be a single paragraph of plain English text with " +
		"no markdown, no headings or titles, no bullet points, and no code blocks."
)

// fallbackRewritePrompt is used when a writer has no rewrite template of its
// own but a rewrite is still requested.
const fallbackRewritePrompt = "You are a careful Community Notes contributor. " +
	"Rewrite the note to be more neutral, grounded in verifiable facts, " +
	"and aligned with Community Notes guidelines.\n\n" +
	"Original Community Note draft:\n{current_note}\n\n" +
	"Tweet:\n{tweet_text}\n\n" +
	"Weaknesses to fix:\n{weakness_summary}"

// renderTemplate substitutes the recognized {placeholder} variables into a
// writer-supplied prompt template. Unknown placeholders pass through
// untouched.
func renderTemplate(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func tweetVars(tweet models.Tweet) map[string]string {
	return map[string]string{
		"tweet_text":    tweet.Text,
		"tweet_id":      tweet.TweetID,
		"author_handle": tweet.AuthorHandle,
	}
}

// BuildNotePrompt renders a writer's drafting template for one tweet.
func BuildNotePrompt(tweet models.Tweet, writer models.WriterConfig) string {
	return renderTemplate(writer.Prompt, tweetVars(tweet))
}

// BuildRewritePrompt renders a writer's rewrite template, or a built-in
// fallback when the writer has none, for one weak note.
func BuildRewritePrompt(tweet models.Tweet, writer models.WriterConfig, currentNote, weaknessSummary string) string {
	tmpl := writer.RewritePrompt
	if tmpl == "" {
		tmpl = fallbackRewritePrompt
	}
	vars := tweetVars(tweet)
	vars["current_note"] = currentNote
	vars["weakness_summary"] = weaknessSummary
	return renderTemplate(tmpl, vars)
}
