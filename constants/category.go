package constants

import (
	"strings"
)

// Category names a field of an extraction record. The string values are the
// exported JSON keys.
type Category string

const (
	ClinicalTerms       Category = "Clinical Terms"
	AnatomicalLocations Category = "Anatomical Locations"
	Diagnoses           Category = "Diagnosis"
	Procedures          Category = "Procedures"
)

var allCategories = []Category{
	ClinicalTerms,
	AnatomicalLocations,
	Diagnoses,
	Procedures,
}

// Categories returns the term categories in record order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// AsStringSlice returns the category names in record order.
func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps user input ("clinical_terms", "dx", "Diagnosis", ...) to a Category.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)

	synonyms := map[string]Category{
		"clinical":  ClinicalTerms,
		"terms":     ClinicalTerms,
		"anatomy":   AnatomicalLocations,
		"locations": AnatomicalLocations,
		"diagnoses": Diagnoses,
		"dx":        Diagnoses,
		"procedure": Procedures,
		"px":        Procedures,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return "", false
}

// Code system keys used in records and dictionaries.
const (
	CodeICD10 = "ICD-10"
	CodeCPT   = "CPT"
	CodeHCPCS = "HCPCS"
)
