package notetext

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Violation reasons returned by Validate.
const (
	ReasonEmpty         = "note text is empty"
	ReasonTooLong       = "note text exceeds 280 characters"
	ReasonMultiline     = "note text must be a single paragraph"
	ReasonNoURL         = "note text must include at least one http(s):// source URL"
	ReasonMarkdownMark  = "note text contains residual heading or list markers"
	ReasonMarkdownLink  = "note text contains residual markdown link syntax"
)

var mdLinkResidualRe = regexp.MustCompile(`\[[^\]]+\]\(`)

// Validate checks the final note text against the submission contract and
// returns every violated rule. An empty result means the text is eligible.
// Pure function, no side effects.
func Validate(text string) []string {
	var violations []string

	n := utf8.RuneCountInString(text)
	if n < 1 {
		violations = append(violations, ReasonEmpty)
	}
	if n > MaxNoteLength {
		violations = append(violations, ReasonTooLong)
	}
	if strings.Contains(text, "\n") {
		violations = append(violations, ReasonMultiline)
	}
	if !urlRe.MatchString(text) {
		violations = append(violations, ReasonNoURL)
	}
	if hasLeadingMarker(text) {
		violations = append(violations, ReasonMarkdownMark)
	}
	if mdLinkResidualRe.MatchString(text) {
		violations = append(violations, ReasonMarkdownLink)
	}

	return violations
}

func hasLeadingMarker(text string) bool {
	if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "*") {
		return true
	}
	if strings.HasPrefix(text, "- ") || strings.HasPrefix(text, "• ") {
		return true
	}
	return numberedRe.MatchString(text)
}
