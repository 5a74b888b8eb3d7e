package match

import (
	"strings"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textnorm"
)

// Fuzzy matches a term when its normalized form is a substring of the
// normalized text, or when any single text token is similar enough to it.
type Fuzzy struct {
	cutoff     float64
	metric     string
	similarity Similarity
}

// Option configures a Fuzzy matcher.
type Option func(*Fuzzy)

// WithCutoff sets the minimum token similarity, in [0, 1].
func WithCutoff(cutoff float64) Option {
	return func(f *Fuzzy) {
		if cutoff >= 0 && cutoff <= 1 {
			f.cutoff = cutoff
		}
	}
}

// WithSimilarity replaces the token similarity metric.
func WithSimilarity(name string, fn Similarity) Option {
	return func(f *Fuzzy) {
		if fn != nil {
			f.metric = name
			f.similarity = fn
		}
	}
}

// NewFuzzy returns a fuzzy matcher using ratio similarity and DefaultCutoff
// unless overridden.
func NewFuzzy(opts ...Option) *Fuzzy {
	f := &Fuzzy{
		cutoff:     DefaultCutoff,
		metric:     MetricRatio,
		similarity: RatioSimilarity,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (*Fuzzy) Name() string { return constants.ModeFuzzy }

// Cutoff returns the configured similarity threshold.
func (f *Fuzzy) Cutoff() float64 { return f.cutoff }

// Metric returns the name of the similarity metric in use.
func (f *Fuzzy) Metric() string { return f.metric }

func (f *Fuzzy) Match(text string, terms []string) []string {
	if len(terms) == 0 {
		return []string{}
	}
	normText := textnorm.Normalize(text)
	var tokens []string
	found := make(map[string]struct{})
	for _, term := range terms {
		normTerm := strings.TrimSpace(textnorm.Normalize(term))
		if normTerm == "" {
			continue
		}
		if strings.Contains(normText, normTerm) {
			found[term] = struct{}{}
			continue
		}
		if tokens == nil {
			tokens = strings.Fields(normText)
		}
		if f.closeMatch(normTerm, tokens) {
			found[term] = struct{}{}
		}
	}
	return sorted(found)
}

func (f *Fuzzy) closeMatch(term string, tokens []string) bool {
	for _, tok := range tokens {
		if f.similarity(tok, term) >= f.cutoff {
			return true
		}
	}
	return false
}
