// Package evaluate scores extraction records against the calibrated expected
// counts of their report templates.
package evaluate

import (
	"fmt"
	"math"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

// Evaluator is safe for concurrent use.
type Evaluator struct {
	store *dictionary.Store
}

func New(store *dictionary.Store) *Evaluator {
	return &Evaluator{store: store}
}

// Score returns the capped finding count of rec and its expected count.
// Clinical terms are re-checked against the dictionary; the other
// categories count as matched.
func (e *Evaluator) Score(rec *entity.ExtractionRecord) (captured, expected int) {
	allowed := make(map[string]struct{})
	for _, term := range e.store.Lookup(rec.ReportID, constants.ClinicalTerms) {
		allowed[term] = struct{}{}
	}
	seen := make(map[string]struct{}, len(rec.ClinicalTerms))
	for _, term := range rec.ClinicalTerms {
		if _, ok := allowed[term]; !ok {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		captured++
	}
	captured += len(rec.AnatomicalLocations) + len(rec.Diagnoses) + len(rec.Procedures)

	expected = e.store.ExpectedCount(rec.ReportID)
	if expected <= 0 {
		return 0, 0
	}
	return min(captured, expected), expected
}

// Evaluate attaches Accuracy to every record in place and returns the
// aggregate over all of them.
func (e *Evaluator) Evaluate(records []entity.ExtractionRecord) entity.Summary {
	var sum entity.Summary
	for i := range records {
		captured, expected := e.Score(&records[i])
		records[i].Accuracy = &entity.Accuracy{
			Percentage: Percentage(captured, expected),
			Count:      fmt.Sprintf("%d/%d", captured, expected),
		}
		sum.Reports++
		sum.Captured += captured
		sum.Expected += expected
	}
	sum.Percentage = Percentage(sum.Captured, sum.Expected)
	return sum
}

// Percentage is 100*captured/expected rounded to one decimal; 0 when
// expected is not positive.
func Percentage(captured, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return math.Round(float64(captured)/float64(expected)*1000) / 10
}
