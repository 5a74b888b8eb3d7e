// Package dictionary holds the curated, per-report term dictionaries the
// matchers run against. A Store is immutable once built and safe for
// concurrent readers.
package dictionary

import (
	"fmt"
	"slices"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
)

// CodeSet holds the default billing codes of a report template.
type CodeSet struct {
	ICD10 []string `yaml:"icd10" json:"ICD-10"`
	CPT   []string `yaml:"cpt" json:"CPT"`
	HCPCS []string `yaml:"hcpcs" json:"HCPCS"`
}

// TermDictionary is the curated vocabulary of one report identity.
type TermDictionary struct {
	ReportID            string   `yaml:"id" json:"ReportID"`
	ExpectedCount       int      `yaml:"expected_count" json:"ExpectedCount"`
	ClinicalTerms       []string `yaml:"clinical_terms" json:"Clinical Terms"`
	AnatomicalLocations []string `yaml:"anatomical_locations" json:"Anatomical Locations"`
	Diagnoses           []string `yaml:"diagnoses" json:"Diagnosis"`
	Procedures          []string `yaml:"procedures" json:"Procedures"`
	Codes               CodeSet  `yaml:"codes" json:"Codes"`
}

// Terms returns the list held for category, or nil for an unknown category.
func (d TermDictionary) Terms(category constants.Category) []string {
	switch category {
	case constants.ClinicalTerms:
		return d.ClinicalTerms
	case constants.AnatomicalLocations:
		return d.AnatomicalLocations
	case constants.Diagnoses:
		return d.Diagnoses
	case constants.Procedures:
		return d.Procedures
	default:
		return nil
	}
}

func (d TermDictionary) clone() TermDictionary {
	return TermDictionary{
		ReportID:            d.ReportID,
		ExpectedCount:       d.ExpectedCount,
		ClinicalTerms:       slices.Clone(d.ClinicalTerms),
		AnatomicalLocations: slices.Clone(d.AnatomicalLocations),
		Diagnoses:           slices.Clone(d.Diagnoses),
		Procedures:          slices.Clone(d.Procedures),
		Codes: CodeSet{
			ICD10: slices.Clone(d.Codes.ICD10),
			CPT:   slices.Clone(d.Codes.CPT),
			HCPCS: slices.Clone(d.Codes.HCPCS),
		},
	}
}

// Store maps report identities to their dictionaries. Lookups on unknown
// identities return empty results instead of failing.
type Store struct {
	order   []string
	entries map[string]TermDictionary
}

// NewStore validates entries and builds a Store preserving their order.
func NewStore(entries ...TermDictionary) (*Store, error) {
	validator := common.NewValidator()
	s := &Store{entries: make(map[string]TermDictionary, len(entries))}
	for i, e := range entries {
		field := fmt.Sprintf("reports[%d]", i)
		validator.Field(field+".id", e.ReportID, common.Required)
		validator.Field(field+".expected_count", e.ExpectedCount, common.NonNegative)
		if _, dup := s.entries[e.ReportID]; dup {
			validator.Field(field+".id", e.ReportID, func(f string, v interface{}) *common.ValidationError {
				return &common.ValidationError{Field: f, Value: v, Message: "is duplicated"}
			})
			continue
		}
		s.order = append(s.order, e.ReportID)
		s.entries[e.ReportID] = e.clone()
	}
	if err := validator.Error(); err != nil {
		return nil, err
	}
	return s, nil
}

// Has reports whether reportID has a dictionary.
func (s *Store) Has(reportID string) bool {
	_, ok := s.entries[reportID]
	return ok
}

// IDs returns the known report identities in load order.
func (s *Store) IDs() []string {
	return slices.Clone(s.order)
}

// Len returns the number of report identities.
func (s *Store) Len() int {
	return len(s.order)
}

// Lookup returns a copy of the terms for reportID and category.
func (s *Store) Lookup(reportID string, category constants.Category) []string {
	e, ok := s.entries[reportID]
	if !ok {
		return nil
	}
	return slices.Clone(e.Terms(category))
}

// ExpectedCount returns the calibrated finding count, 0 when unknown.
func (s *Store) ExpectedCount(reportID string) int {
	return s.entries[reportID].ExpectedCount
}

// Codes returns a copy of the default code set for reportID.
func (s *Store) Codes(reportID string) CodeSet {
	e, ok := s.entries[reportID]
	if !ok {
		return CodeSet{}
	}
	return e.clone().Codes
}

// Entry returns a copy of the whole dictionary for reportID.
func (s *Store) Entry(reportID string) (TermDictionary, bool) {
	e, ok := s.entries[reportID]
	if !ok {
		return TermDictionary{}, false
	}
	return e.clone(), true
}
