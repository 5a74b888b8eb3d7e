// Package textnorm prepares report text for matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ ]*[_\-=]{3,}[ ]*$`)
)

// Normalize folds text for comparison: NFKC, lowercase, and every rune that
// is not a letter, digit, underscore or whitespace removed.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(norm.NFKC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits the normalized form of s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Clean tidies raw extractor output before segmentation.
// Conservative: keeps line breaks; collapses >2 newlines into a single blank line.
// Case and punctuation are untouched so code patterns still apply.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	// ruler lines from pdftotext -layout
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(s)
}
