// Package codes scans report text for ICD-10 and CPT shaped billing codes.
package codes

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

var reICD10 = regexp.MustCompile(`\b[A-Z]\d{2}(?:\.\d{1,4})?\b`)

// Default CPT widths: five digits, six tolerated for codes seen with a modifier digit.
const (
	DefaultCPTMinDigits = 5
	DefaultCPTMaxDigits = 6
)

// Config sets the accepted CPT digit widths.
type Config struct {
	CPTMinDigits int
	CPTMaxDigits int
}

// Extractor is safe for concurrent use.
type Extractor struct {
	cpt *regexp.Regexp
}

// New validates cfg and compiles the CPT pattern. Zero widths take the defaults.
func New(cfg Config) (*Extractor, error) {
	if cfg.CPTMinDigits == 0 {
		cfg.CPTMinDigits = DefaultCPTMinDigits
	}
	if cfg.CPTMaxDigits == 0 {
		cfg.CPTMaxDigits = DefaultCPTMaxDigits
	}
	if cfg.CPTMinDigits < 2 || cfg.CPTMaxDigits < cfg.CPTMinDigits {
		return nil, fmt.Errorf("invalid CPT width %d..%d", cfg.CPTMinDigits, cfg.CPTMaxDigits)
	}
	pattern := fmt.Sprintf(`\b4\d{%d,%d}\b`, cfg.CPTMinDigits-1, cfg.CPTMaxDigits-1)
	return &Extractor{cpt: regexp.MustCompile(pattern)}, nil
}

// NewDefault returns an Extractor with the default CPT widths.
func NewDefault() *Extractor {
	e, _ := New(Config{})
	return e
}

// Extract returns the distinct ICD-10 and CPT shaped tokens in text, sorted.
// Text is scanned as given; ICD-10 codes need an uppercase letter.
func (e *Extractor) Extract(text string) (icd10, cpt []string) {
	return e.ICD10(text), e.CPT(text)
}

// ICD10 returns the ICD-10 shaped tokens in text.
func (e *Extractor) ICD10(text string) []string {
	return unique(reICD10.FindAllString(text, -1))
}

// CPT returns the CPT shaped tokens in text.
func (e *Extractor) CPT(text string) []string {
	return unique(e.cpt.FindAllString(text, -1))
}

func unique(found []string) []string {
	if len(found) == 0 {
		return []string{}
	}
	set := make(map[string]struct{}, len(found))
	for _, f := range found {
		set[f] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}
