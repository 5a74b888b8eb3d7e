package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
)

func TestDefault_KnownReports(t *testing.T) {
	s := Default()

	want := []string{"Report 1", "Report 2", "Report 3", "Report 4"}
	if diff := cmp.Diff(want, s.IDs()); diff != "" {
		t.Fatalf("IDs mismatch (-want +got):\n%s", diff)
	}

	expected := map[string]int{"Report 1": 26, "Report 2": 20, "Report 3": 26, "Report 4": 24}
	for id, n := range expected {
		if got := s.ExpectedCount(id); got != n {
			t.Errorf("ExpectedCount(%q) = %d, want %d", id, got, n)
		}
		for _, cat := range constants.Categories() {
			if len(s.Lookup(id, cat)) == 0 {
				t.Errorf("Lookup(%q, %q) is empty", id, cat)
			}
		}
		if len(s.Codes(id).ICD10) == 0 || len(s.Codes(id).CPT) == 0 {
			t.Errorf("Codes(%q) has no ICD-10 or CPT defaults", id)
		}
	}
}

func TestStore_UnknownReportIsEmpty(t *testing.T) {
	s := Default()

	if s.Has("Report 9") {
		t.Fatal("Has(Report 9) = true")
	}
	if got := s.Lookup("Report 9", constants.ClinicalTerms); len(got) != 0 {
		t.Errorf("Lookup = %v, want empty", got)
	}
	if got := s.ExpectedCount("Report 9"); got != 0 {
		t.Errorf("ExpectedCount = %d, want 0", got)
	}
	if diff := cmp.Diff(CodeSet{}, s.Codes("Report 9")); diff != "" {
		t.Errorf("Codes mismatch (-want +got):\n%s", diff)
	}
	if got := s.Lookup("Report 1", constants.Category("Medications")); got != nil {
		t.Errorf("unknown category = %v, want nil", got)
	}
}

func TestStore_LookupReturnsCopy(t *testing.T) {
	s := Default()

	terms := s.Lookup("Report 1", constants.Procedures)
	terms[0] = "mutated"
	codes := s.Codes("Report 1")
	codes.ICD10[0] = "X00"

	if got := s.Lookup("Report 1", constants.Procedures)[0]; got == "mutated" {
		t.Error("Lookup exposed internal slice")
	}
	if got := s.Codes("Report 1").ICD10[0]; got == "X00" {
		t.Error("Codes exposed internal slice")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing id",
			doc:  "reports:\n  - expected_count: 3\n",
		},
		{
			name: "negative expected count",
			doc:  "reports:\n  - id: A\n    expected_count: -1\n",
		},
		{
			name: "duplicate id",
			doc:  "reports:\n  - id: A\n  - id: A\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			if !errors.Is(err, common.ErrValidation) {
				t.Fatalf("Load() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	if _, err := Load([]byte("reports: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	doc := `reports:
  - id: "Report 7"
    expected_count: 2
    procedures: ["colonoscopy"]
    codes:
      cpt: ["45378"]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if diff := cmp.Diff([]string{"colonoscopy"}, s.Lookup("Report 7", constants.Procedures)); diff != "" {
		t.Errorf("procedures mismatch (-want +got):\n%s", diff)
	}
	if got := s.Lookup("Report 7", constants.Diagnoses); len(got) != 0 {
		t.Errorf("missing category = %v, want empty", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	def, err := LoadFile("")
	if err != nil || def.Len() != 4 {
		t.Errorf("LoadFile(\"\") = %v, %v; want default store", def, err)
	}
}

func TestDemoDocument(t *testing.T) {
	doc := DemoDocument()
	for _, id := range Default().IDs() {
		if !strings.Contains(doc, id+":") {
			t.Errorf("demo document has no %q label", id)
		}
	}
}
