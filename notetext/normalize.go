// Package notetext turns raw model output into the plain single-paragraph
// form the Community Notes API accepts, and checks the final text against the
// submission contract.
package notetext

import (
	"regexp"
	"strings"
)

// MaxNoteLength is the Community Notes character budget.
const MaxNoteLength = 280

var (
	urlRe      = regexp.MustCompile(`(?i)https?://[^\s)]+`)
	headingRe  = regexp.MustCompile(`^#{1,6}\s*`)
	labelRe    = regexp.MustCompile(`^[A-Z][A-Za-z]*:\s*`)
	numberedRe = regexp.MustCompile(`^\d+\.\s+`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Normalize converts multi-line, markdown-like model output into a single
// plain paragraph of at most maxLength characters:
//
//   - strip heading markers ("### ...") and leading "Claim:"-style labels
//   - strip bullet and numbered-list markers, keeping the line content
//   - drop fenced code blocks
//   - rewrite [label](url) into "label (url)"
//   - collapse all whitespace into single spaces
//   - truncate deterministically, preferring to keep the first URL
//
// Normalizing already-canonical text returns it unchanged.
func Normalize(raw string, maxLength int) string {
	var parts []string
	inFence := false

	for _, line := range strings.Split(raw, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		s = stripLineMarkers(s)
		if s != "" {
			parts = append(parts, s)
		}
	}

	text := strings.Join(parts, " ")
	text = mdLinkRe.ReplaceAllString(text, "$1 ($2)")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))

	return truncate(text, raw, maxLength)
}

// stripLineMarkers removes heading, label, bullet, and numbered-list markers
// from the start of a line until none remain, so stacked markers like
// "- Claim: ..." come off in one pass.
func stripLineMarkers(s string) string {
	for {
		before := s
		s = headingRe.ReplaceAllString(s, "")
		s = labelRe.ReplaceAllString(s, "")
		for _, marker := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(s, marker) {
				s = strings.TrimSpace(s[len(marker):])
			}
		}
		s = numberedRe.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
		if s == before {
			return s
		}
	}
}

// truncate cuts text down to maxLength characters. When the original text
// carried a URL that a plain cut would drop, the first URL is re-appended if
// the budget allows; otherwise the cut is taken as-is.
func truncate(text, original string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	naive := strings.TrimSpace(string(runes[:maxLength]))
	u := firstURL(original)
	if u == "" || strings.Contains(naive, u) {
		return naive
	}

	budget := maxLength - len([]rune(u)) - 1
	if budget < 0 {
		return naive
	}
	head := strings.TrimSpace(string(runes[:budget]))
	if head == "" {
		return u
	}
	return head + " " + u
}

func firstURL(text string) string {
	return urlRe.FindString(text)
}
