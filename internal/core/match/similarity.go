package match

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two strings in [0, 1]; 1 means identical.
type Similarity func(a, b string) float64

// Metric names accepted by SimilarityByName.
const (
	MetricRatio       = "ratio"
	MetricLevenshtein = "levenshtein"
)

// RatioSimilarity is the matching-subsequence ratio 2*M/T computed over runes.
func RatioSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// LevenshteinSimilarity is 1 - distance/max(len) over runes.
func LevenshteinSimilarity(a, b string) float64 {
	return levenshtein.Similarity(a, b, nil)
}

// SimilarityByName resolves a metric name.
func SimilarityByName(name string) (Similarity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MetricRatio, "":
		return RatioSimilarity, nil
	case MetricLevenshtein:
		return LevenshteinSimilarity, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", name)
	}
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
