package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecords() []entity.ExtractionRecord {
	return []entity.ExtractionRecord{
		{
			ReportID:            "Report 3",
			ClinicalTerms:       []string{"internal hemorrhoids", "rectal bleeding"},
			AnatomicalLocations: []string{"rectum"},
			Diagnoses:           []string{},
			Procedures:          []string{"colonoscopy"},
			ICD10:               []string{"K62.5", "K62.6"},
			CPT:                 []string{"45380"},
			HCPCS:               []string{},
			Accuracy:            &entity.Accuracy{Percentage: 15.4, Count: "4/26"},
		},
	}
}

func TestJSON_Indent(t *testing.T) {
	for _, indent := range []int{2, 4} {
		s, err := NewService(testLogger(), indent)
		if err != nil {
			t.Fatalf("NewService(%d) error = %v", indent, err)
		}
		data, err := s.JSON(sampleRecords())
		if err != nil {
			t.Fatalf("JSON() error = %v", err)
		}
		prefix := "[\n" + strings.Repeat(" ", indent) + "{\n" + strings.Repeat(" ", 2*indent) + `"ReportID": "Report 3",`
		if !strings.HasPrefix(string(data), prefix) {
			t.Errorf("indent %d: unexpected layout:\n%s", indent, data)
		}
	}
}

func TestJSON_Keys(t *testing.T) {
	s, err := NewService(testLogger(), 2)
	if err != nil {
		t.Fatal(err)
	}
	data, err := s.JSON(sampleRecords())
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	var keys []string
	for k := range got[0] {
		keys = append(keys, k)
	}
	want := []string{"Accuracy", "Anatomical Locations", "CPT", "Clinical Terms", "Diagnosis", "HCPCS", "ICD-10", "Procedures", "ReportID"}
	slices.Sort(keys)
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	acc := got[0]["Accuracy"].(map[string]any)
	if acc["Count"] != "4/26" || acc["Percentage"] != 15.4 {
		t.Errorf("Accuracy = %v", acc)
	}
}

func TestJSON_Empty(t *testing.T) {
	s, _ := NewService(testLogger(), 2)
	data, err := s.JSON(nil)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("JSON(nil) = %q", data)
	}
}

func TestValidate_RejectsMalformed(t *testing.T) {
	s, _ := NewService(testLogger(), 2)

	tests := []struct {
		name string
		doc  string
	}{
		{"not an array", `{"ReportID": "Report 1"}`},
		{"missing field", `[{"ReportID": "Report 1"}]`},
		{"bad count", `[{"ReportID":"R","Clinical Terms":[],"Anatomical Locations":[],"Diagnosis":[],"Procedures":[],"ICD-10":[],"CPT":[],"HCPCS":[],"Accuracy":{"Percentage":50,"Count":"(1/2)"}}]`},
		{"over 100", `[{"ReportID":"R","Clinical Terms":[],"Anatomical Locations":[],"Diagnosis":[],"Procedures":[],"ICD-10":[],"CPT":[],"HCPCS":[],"Accuracy":{"Percentage":101,"Count":"1/1"}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Validate([]byte(tt.doc)); !errors.Is(err, common.ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}

	if err := s.Validate([]byte("{")); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("Validate(garbage) error = %v, want ErrInvalidInput", err)
	}
}

func TestNewService_Indent(t *testing.T) {
	if _, err := NewService(testLogger(), 3); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("NewService(3) error = %v", err)
	}
}

func TestXLSX(t *testing.T) {
	s, _ := NewService(testLogger(), 2)
	data, err := s.XLSX(sampleRecords(), entity.Summary{Reports: 1, Captured: 4, Expected: 26, Percentage: 15.4})
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Reports")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Report", "Clinical Terms", "Anatomical Locations", "Diagnosis", "Procedures", "ICD-10", "CPT", "HCPCS", "Accuracy %", "Count"},
		{"Report 3", "internal hemorrhoids; rectal bleeding", "rectum", "", "colonoscopy", "K62.5, K62.6", "45380", "", "15.4", "4/26"},
		{"Overall", "", "", "", "", "", "", "", "15.4", "4/26"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}
