// Package phrase normalizes spoken-phrase transcripts and checks them against
// the wake allow-list. Transcripts come from STT engines, so matching is
// tolerant of case, edge punctuation, curly apostrophes and "im".
package phrase

import (
	"regexp"
	"strings"
)

// Canonical phrases accepted for the spoken step, post-normalization.
var validPhrases = map[string]struct{}{
	"i'm awake":  {},
	"i am awake": {},
	"awake":      {},
	"im awake":   {},
	"i'm up":     {},
	"i am up":    {},
	"up":         {},
	"im up":      {},
	"wake up":    {},
	"get up":     {},
	"a wake":     {},
	"awaken":     {},
	"wake":       {},
}

// Accepted tokens for the typed step.
var typedKeywords = map[string]struct{}{
	"yes":  {},
	"ok":   {},
	"okay": {},
}

var (
	trailingPunct = regexp.MustCompile(`[.!?,;:]+$`)
	leadingPunct  = regexp.MustCompile(`^\s*[.!?,;:]+\s*`)
	whitespace    = regexp.MustCompile(`\s+`)
	bareIm        = regexp.MustCompile(`\bim\b`)

	apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")
)

// Normalize lowercases and trims raw, canonicalizes apostrophes, strips
// leading and trailing punctuation, collapses whitespace and rewrites the
// standalone token "im" to "i'm".
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = apostrophes.Replace(s)
	s = strings.TrimSpace(trailingPunct.ReplaceAllString(s, ""))
	s = leadingPunct.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	s = bareIm.ReplaceAllString(s, "i'm")
	return strings.TrimSpace(s)
}

// IsValid reports whether raw normalizes to an allowed wake phrase.
func IsValid(raw string) bool {
	canonical := Normalize(raw)
	if canonical == "" {
		return false
	}
	_, ok := validPhrases[canonical]
	return ok
}

// IsTypedKeyword reports whether raw is one of yes/ok/okay, ignoring case and
// surrounding whitespace.
func IsTypedKeyword(raw string) bool {
	_, ok := typedKeywords[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}
