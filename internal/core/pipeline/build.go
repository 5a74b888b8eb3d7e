package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/codes"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/evaluate"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/match"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/segment"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
)

// New wires a Processor from extraction configuration. A non-positive
// cutoff means match.DefaultCutoff.
func New(logger *slog.Logger, store *dictionary.Store, cfg common.ExtractionConfig) (*Processor, error) {
	if cfg.FuzzyCutoff <= 0 {
		cfg.FuzzyCutoff = match.DefaultCutoff
	}
	if cfg.Similarity == "" {
		cfg.Similarity = match.MetricRatio
	}
	similarity, err := match.SimilarityByName(cfg.Similarity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	matcher, err := match.New(cfg.Mode,
		match.WithCutoff(cfg.FuzzyCutoff),
		match.WithSimilarity(cfg.Similarity, similarity),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	codeExtractor, err := codes.New(codes.Config{CPTMinDigits: cfg.CPTMinDigits, CPTMaxDigits: cfg.CPTMaxDigits})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	segmenter := segment.NewDefault()
	if cfg.LabelPattern != "" {
		if segmenter, err = segment.New(cfg.LabelPattern); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
	}

	extractor := NewExtractor(logger, store, matcher, codeExtractor)
	return NewProcessor(logger, segmenter, extractor, evaluate.New(store)), nil
}

// NewDefault returns a fuzzy Processor over store with default settings.
func NewDefault(logger *slog.Logger, store *dictionary.Store) *Processor {
	p, err := New(logger, store, common.ExtractionConfig{Mode: constants.ModeFuzzy})
	if err != nil {
		panic(fmt.Sprintf("default pipeline: %v", err))
	}
	return p
}
