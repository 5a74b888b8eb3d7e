package evaluate

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

func terms(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i)
	}
	return out
}

func newStore(t *testing.T, entries ...dictionary.TermDictionary) *dictionary.Store {
	t.Helper()
	s, err := dictionary.NewStore(entries...)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestEvaluate_CapsAtExpectedCount(t *testing.T) {
	store := newStore(t, dictionary.TermDictionary{ReportID: "Report 1", ExpectedCount: 26})
	records := []entity.ExtractionRecord{{
		ReportID:            "Report 1",
		AnatomicalLocations: terms("location", 10),
		Diagnoses:           terms("diagnosis", 10),
		Procedures:          terms("procedure", 10),
	}}

	sum := New(store).Evaluate(records)

	want := &entity.Accuracy{Percentage: 100.0, Count: "26/26"}
	if diff := cmp.Diff(want, records[0].Accuracy); diff != "" {
		t.Errorf("Accuracy mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(entity.Summary{Reports: 1, Captured: 26, Expected: 26, Percentage: 100}, sum); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_ClinicalTermsReintersected(t *testing.T) {
	store := newStore(t, dictionary.TermDictionary{
		ReportID:      "Report 2",
		ExpectedCount: 20,
		ClinicalTerms: []string{"hemorrhoids", "cold snare"},
	})
	records := []entity.ExtractionRecord{{
		ReportID:      "Report 2",
		ClinicalTerms: []string{"hemorrhoids", "hemorrhoids", "not in dictionary"},
		Procedures:    []string{"colonoscopy"},
	}}

	New(store).Evaluate(records)

	want := &entity.Accuracy{Percentage: 10.0, Count: "2/20"}
	if diff := cmp.Diff(want, records[0].Accuracy); diff != "" {
		t.Errorf("Accuracy mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_Aggregate(t *testing.T) {
	store := newStore(t,
		dictionary.TermDictionary{ReportID: "A", ExpectedCount: 3},
		dictionary.TermDictionary{ReportID: "B", ExpectedCount: 6},
		dictionary.TermDictionary{ReportID: "C", ExpectedCount: 0},
	)
	records := []entity.ExtractionRecord{
		{ReportID: "A", Diagnoses: terms("d", 1)},
		{ReportID: "B", Procedures: terms("p", 1)},
		{ReportID: "C", Procedures: terms("p", 4)},
	}

	sum := New(store).Evaluate(records)

	if got := records[0].Accuracy; got.Percentage != 33.3 || got.Count != "1/3" {
		t.Errorf("A accuracy = %+v", got)
	}
	if got := records[1].Accuracy; got.Percentage != 16.7 || got.Count != "1/6" {
		t.Errorf("B accuracy = %+v", got)
	}
	if got := records[2].Accuracy; got.Percentage != 0 || got.Count != "0/0" {
		t.Errorf("C accuracy = %+v", got)
	}
	if diff := cmp.Diff(entity.Summary{Reports: 3, Captured: 2, Expected: 9, Percentage: 22.2}, sum); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_Empty(t *testing.T) {
	sum := New(dictionary.Default()).Evaluate(nil)
	if diff := cmp.Diff(entity.Summary{}, sum); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		captured, expected int
		want               float64
	}{
		{26, 26, 100},
		{19, 26, 73.1},
		{2, 3, 66.7},
		{0, 24, 0},
		{5, 0, 0},
		{5, -1, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.captured, tt.expected); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.captured, tt.expected, got, tt.want)
		}
	}
}
