package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessor_DemoDocument(t *testing.T) {
	store := dictionary.Default()
	p := NewDefault(testLogger(), store)

	res := p.Process(dictionary.DemoDocument())

	var ids []string
	for _, r := range res.Records {
		ids = append(ids, r.ReportID)
	}
	if diff := cmp.Diff([]string{"Report 1", "Report 2", "Report 3", "Report 4"}, ids); diff != "" {
		t.Fatalf("report ids mismatch (-want +got):\n%s", diff)
	}

	wantICD := map[string][]string{
		"Report 1": {"K57.90", "K64.8", "Z86.0100"},
		"Report 2": {"K64.9", "Z12.11"},
		"Report 3": {"K62.5", "K62.6", "K64.8"},
		"Report 4": {"K29.70", "R07.89", "R10.11"},
	}
	wantCPT := map[string][]string{
		"Report 1": {"45378"}, // dictionary fallback
		"Report 2": {"45385"}, // dictionary fallback
		"Report 3": {"45380"},
		"Report 4": {"43239"}, // dictionary fallback
	}
	for _, r := range res.Records {
		if diff := cmp.Diff(wantICD[r.ReportID], r.ICD10); diff != "" {
			t.Errorf("%s ICD-10 mismatch (-want +got):\n%s", r.ReportID, diff)
		}
		if diff := cmp.Diff(wantCPT[r.ReportID], r.CPT); diff != "" {
			t.Errorf("%s CPT mismatch (-want +got):\n%s", r.ReportID, diff)
		}
		if diff := cmp.Diff(store.Codes(r.ReportID).HCPCS, r.HCPCS); diff != "" {
			t.Errorf("%s HCPCS mismatch (-want +got):\n%s", r.ReportID, diff)
		}
		if r.Accuracy == nil {
			t.Fatalf("%s has no accuracy", r.ReportID)
		}
		if r.Accuracy.Percentage > 100 || r.Accuracy.Percentage <= 0 {
			t.Errorf("%s percentage = %v", r.ReportID, r.Accuracy.Percentage)
		}
	}

	if res.Summary.Reports != 4 || res.Summary.Expected != 96 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.Summary.Captured > res.Summary.Expected {
		t.Errorf("captured %d exceeds expected %d", res.Summary.Captured, res.Summary.Expected)
	}
}

func TestProcessor_Idempotent(t *testing.T) {
	p := NewDefault(testLogger(), dictionary.Default())
	doc := dictionary.DemoDocument()

	first := p.Process(doc)
	second := p.Process(doc)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestProcessor_MatchesAreDictionarySubsets(t *testing.T) {
	store := dictionary.Default()
	for _, mode := range []string{constants.ModeExact, constants.ModeFuzzy} {
		p, err := New(testLogger(), store, common.ExtractionConfig{Mode: mode})
		if err != nil {
			t.Fatalf("New(%s) error = %v", mode, err)
		}
		for _, rec := range p.Process(dictionary.DemoDocument()).Records {
			for _, cat := range constants.Categories() {
				allowed := make(map[string]bool)
				for _, term := range store.Lookup(rec.ReportID, cat) {
					allowed[term] = true
				}
				for _, term := range rec.Terms(cat) {
					if !allowed[term] {
						t.Errorf("%s: %s/%s matched %q outside dictionary", mode, rec.ReportID, cat, term)
					}
				}
			}
		}
	}
}

func TestProcessor_UnknownAndEmptySectionsDropped(t *testing.T) {
	p := NewDefault(testLogger(), dictionary.Default())

	res := p.Process("Report 9: colonoscopy of the rectum\nReport 2:   \nReport 1: colonoscopy of the rectum")

	if len(res.Records) != 1 || res.Records[0].ReportID != "Report 1" {
		t.Fatalf("records = %+v, want only Report 1", res.Records)
	}
	if diff := cmp.Diff([]string{"colonoscopy"}, res.Records[0].Procedures); diff != "" {
		t.Errorf("procedures mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rectum"}, res.Records[0].AnatomicalLocations); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessor_NothingRecognized(t *testing.T) {
	p := NewDefault(testLogger(), dictionary.Default())

	res := p.Process("a document without any report labels")
	if !res.Empty() {
		t.Fatalf("Empty() = false, records = %+v", res.Records)
	}
	if diff := cmp.Diff(entity.Summary{}, res.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractor_CodeFallback(t *testing.T) {
	store := dictionary.Default()
	x := NewExtractor(testLogger(), store, nil, nil)

	rec, ok := x.ExtractReport("Report 2", "colonoscopy without any billing codes")
	if !ok {
		t.Fatal("ExtractReport() ok = false")
	}
	defaults := store.Codes("Report 2")
	if diff := cmp.Diff(defaults.ICD10, rec.ICD10); diff != "" {
		t.Errorf("ICD-10 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(defaults.CPT, rec.CPT); diff != "" {
		t.Errorf("CPT mismatch (-want +got):\n%s", diff)
	}
	if rec.HCPCS == nil {
		t.Error("HCPCS is nil, want empty list")
	}
	if rec.Accuracy != nil {
		t.Error("extractor must not score records")
	}

	rec, _ = x.ExtractReport("Report 2", "Z12.11 only")
	if diff := cmp.Diff([]string{"Z12.11"}, rec.ICD10); diff != "" {
		t.Errorf("extracted ICD-10 mismatch (-want +got):\n%s", diff)
	}

	if _, ok := x.ExtractReport("Report 42", "colonoscopy"); ok {
		t.Error("ExtractReport(unknown) ok = true")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	store := dictionary.Default()
	tests := []struct {
		name string
		cfg  common.ExtractionConfig
	}{
		{"mode", common.ExtractionConfig{Mode: "regex"}},
		{"similarity", common.ExtractionConfig{Similarity: "jaro"}},
		{"cpt width", common.ExtractionConfig{CPTMinDigits: 6, CPTMaxDigits: 5}},
		{"label pattern", common.ExtractionConfig{LabelPattern: "report"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(testLogger(), store, tt.cfg); !errors.Is(err, common.ErrInvalidInput) {
				t.Errorf("New() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNew_ModeAndLabel(t *testing.T) {
	p, err := New(testLogger(), dictionary.Default(), common.ExtractionConfig{
		Mode:         constants.ModeExact,
		LabelPattern: `(?i)case\s*(\d+)\s*:?`,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Mode() != constants.ModeExact {
		t.Errorf("Mode() = %q", p.Mode())
	}
	res := p.Process("Case 3: retroflexion in the rectum")
	if len(res.Records) != 1 || res.Records[0].ReportID != "Report 3" {
		t.Fatalf("records = %+v", res.Records)
	}
}
