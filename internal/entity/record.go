package entity

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/joseph-ayodele/clinical-extractor/constants"
)

// ExtractionRecord holds everything extracted from one report. JSON keys are
// the export format consumed downstream.
type ExtractionRecord struct {
	ReportID            string    `json:"ReportID"`
	ClinicalTerms       []string  `json:"Clinical Terms"`
	AnatomicalLocations []string  `json:"Anatomical Locations"`
	Diagnoses           []string  `json:"Diagnosis"`
	Procedures          []string  `json:"Procedures"`
	ICD10               []string  `json:"ICD-10"`
	CPT                 []string  `json:"CPT"`
	HCPCS               []string  `json:"HCPCS"`
	Accuracy            *Accuracy `json:"Accuracy,omitempty"`
}

// Accuracy is the capped score of a record against its expected count.
type Accuracy struct {
	Percentage float64 `json:"Percentage"`
	Count      string  `json:"Count"`
}

// MarshalJSON writes Percentage with exactly one decimal, so 100 is
// rendered as 100.0.
func (a Accuracy) MarshalJSON() ([]byte, error) {
	count, err := json.Marshal(a.Count)
	if err != nil {
		return nil, err
	}
	buf := []byte(`{"Percentage":`)
	buf = strconv.AppendFloat(buf, a.Percentage, 'f', 1, 64)
	buf = append(buf, `,"Count":`...)
	buf = append(buf, count...)
	return append(buf, '}'), nil
}

// Terms returns the matched terms for category.
func (r *ExtractionRecord) Terms(category constants.Category) []string {
	switch category {
	case constants.ClinicalTerms:
		return r.ClinicalTerms
	case constants.AnatomicalLocations:
		return r.AnatomicalLocations
	case constants.Diagnoses:
		return r.Diagnoses
	case constants.Procedures:
		return r.Procedures
	default:
		return nil
	}
}

// SetTerms stores terms for category. Unknown categories are ignored.
func (r *ExtractionRecord) SetTerms(category constants.Category, terms []string) {
	if terms == nil {
		terms = []string{}
	}
	switch category {
	case constants.ClinicalTerms:
		r.ClinicalTerms = terms
	case constants.AnatomicalLocations:
		r.AnatomicalLocations = terms
	case constants.Diagnoses:
		r.Diagnoses = terms
	case constants.Procedures:
		r.Procedures = terms
	}
}

// Clone returns a deep copy.
func (r ExtractionRecord) Clone() ExtractionRecord {
	out := r
	out.ClinicalTerms = slices.Clone(r.ClinicalTerms)
	out.AnatomicalLocations = slices.Clone(r.AnatomicalLocations)
	out.Diagnoses = slices.Clone(r.Diagnoses)
	out.Procedures = slices.Clone(r.Procedures)
	out.ICD10 = slices.Clone(r.ICD10)
	out.CPT = slices.Clone(r.CPT)
	out.HCPCS = slices.Clone(r.HCPCS)
	if r.Accuracy != nil {
		acc := *r.Accuracy
		out.Accuracy = &acc
	}
	return out
}
