// Package match finds which dictionary terms occur in a report text.
package match

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/clinical-extractor/constants"
)

// DefaultCutoff is the token similarity a fuzzy match needs by default.
const DefaultCutoff = 0.8

// Matcher returns the subset of terms found in text. Results are the
// original terms, deduplicated and sorted.
type Matcher interface {
	Name() string
	Match(text string, terms []string) []string
}

// Exact matches whole-word, case-insensitive occurrences of each term.
type Exact struct{}

// NewExact returns the exact matching strategy.
func NewExact() *Exact { return &Exact{} }

func (*Exact) Name() string { return constants.ModeExact }

func (*Exact) Match(text string, terms []string) []string {
	if len(terms) == 0 {
		return []string{}
	}
	lowered := strings.ToLower(text)
	found := make(map[string]struct{})
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(term)) + `\b`)
		if re.MatchString(lowered) {
			found[term] = struct{}{}
		}
	}
	return sorted(found)
}

// New builds the strategy named by mode. Options only apply to fuzzy.
func New(mode string, opts ...Option) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case constants.ModeExact:
		return NewExact(), nil
	case constants.ModeFuzzy, "":
		return NewFuzzy(opts...), nil
	default:
		return nil, fmt.Errorf("unknown match mode %q", mode)
	}
}

func sorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}
	return slices.Sorted(maps.Keys(set))
}
