package pipeline

import (
	"log/slog"
	"slices"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/codes"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/match"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/segment"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

// Extractor builds one ExtractionRecord per recognized report section.
type Extractor struct {
	logger  *slog.Logger
	store   *dictionary.Store
	matcher match.Matcher
	codes   *codes.Extractor
}

func NewExtractor(logger *slog.Logger, store *dictionary.Store, matcher match.Matcher, codeExtractor *codes.Extractor) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher == nil {
		matcher = match.NewFuzzy()
	}
	if codeExtractor == nil {
		codeExtractor = codes.NewDefault()
	}
	return &Extractor{logger: logger, store: store, matcher: matcher, codes: codeExtractor}
}

// Matcher returns the matching strategy in use.
func (x *Extractor) Matcher() match.Matcher { return x.matcher }

// ExtractReport matches text against the dictionary of reportID. It reports
// false when the identity has no dictionary.
func (x *Extractor) ExtractReport(reportID, text string) (entity.ExtractionRecord, bool) {
	if !x.store.Has(reportID) {
		return entity.ExtractionRecord{}, false
	}

	rec := entity.ExtractionRecord{ReportID: reportID}
	for _, cat := range constants.Categories() {
		rec.SetTerms(cat, x.matcher.Match(text, x.store.Lookup(reportID, cat)))
	}

	defaults := x.store.Codes(reportID)
	icd, cpt := x.codes.Extract(text)
	rec.ICD10 = orDefault(icd, defaults.ICD10)
	rec.CPT = orDefault(cpt, defaults.CPT)
	rec.HCPCS = orDefault(nil, defaults.HCPCS)
	return rec, true
}

// Extract processes non-empty sections in order, skipping unknown identities.
func (x *Extractor) Extract(sections segment.Sections) []entity.ExtractionRecord {
	records := make([]entity.ExtractionRecord, 0, len(sections))
	for _, sec := range sections.NonEmpty() {
		rec, ok := x.ExtractReport(sec.ID, sec.Text)
		if !ok {
			x.logger.Warn("extract.report.skipped", "report_id", sec.ID, "reason", "no dictionary")
			continue
		}
		x.logger.Debug("extract.report.ok",
			"report_id", rec.ReportID,
			"matcher", x.matcher.Name(),
			"clinical_terms", len(rec.ClinicalTerms),
			"anatomical_locations", len(rec.AnatomicalLocations),
			"diagnoses", len(rec.Diagnoses),
			"procedures", len(rec.Procedures),
		)
		records = append(records, rec)
	}
	return records
}

func orDefault(found, fallback []string) []string {
	if len(found) > 0 {
		return found
	}
	if fallback == nil {
		return []string{}
	}
	return slices.Clone(fallback)
}
