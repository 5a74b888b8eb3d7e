// Package pipeline turns raw document text into scored extraction records.
package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/clinical-extractor/internal/core/evaluate"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/segment"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textnorm"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

// Result is the outcome of processing one document.
type Result struct {
	Records []entity.ExtractionRecord `json:"records"`
	Summary entity.Summary            `json:"summary"`
}

// Empty reports whether no report could be recognized.
func (r Result) Empty() bool { return len(r.Records) == 0 }

// Processor coordinates segmentation, extraction and scoring.
type Processor struct {
	logger    *slog.Logger
	segmenter *segment.Segmenter
	extractor *Extractor
	evaluator *evaluate.Evaluator
}

func NewProcessor(logger *slog.Logger, segmenter *segment.Segmenter, extractor *Extractor, evaluator *evaluate.Evaluator) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if segmenter == nil {
		segmenter = segment.NewDefault()
	}
	return &Processor{logger: logger, segmenter: segmenter, extractor: extractor, evaluator: evaluator}
}

// Mode returns the name of the matching strategy.
func (p *Processor) Mode() string { return p.extractor.Matcher().Name() }

// Process never fails; an empty Result means nothing was recognized.
func (p *Processor) Process(text string) Result {
	// 1) Clean → tidy line endings and blank runs
	cleaned := textnorm.Clean(text)

	// 2) Segment → one section per report label
	sections := p.segmenter.Split(cleaned)

	// 3) Extract → match dictionaries and codes per section
	records := p.extractor.Extract(sections)

	// 4) Evaluate → capped accuracy per record + aggregate
	summary := p.evaluator.Evaluate(records)

	if len(records) == 0 {
		p.logger.Warn("processor.no_reports", "sections", len(sections), "bytes", len(text))
	} else {
		p.logger.Info("processor.ok",
			"reports", summary.Reports,
			"captured", summary.Captured,
			"expected", summary.Expected,
			"percentage", summary.Percentage,
		)
	}
	return Result{Records: records, Summary: summary}
}
