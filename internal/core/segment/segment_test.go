package segment

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
		ids  []string
	}{
		{
			name: "two labels",
			text: "Report 1: foo Report 2: bar",
			want: map[string]string{"Report 1": " foo ", "Report 2": " bar"},
			ids:  []string{"Report 1", "Report 2"},
		},
		{
			name: "preamble dropped",
			text: "Patient header\nREPORT 3:\nfindings",
			want: map[string]string{"Report 3": "\nfindings"},
			ids:  []string{"Report 3"},
		},
		{
			name: "label without space or colon",
			text: "report12 text",
			want: map[string]string{"Report 12": "text"},
			ids:  []string{"Report 12"},
		},
		{
			name: "repeated label restarts its text",
			text: "Report 1: a Report 2: b Report 1: c",
			want: map[string]string{"Report 1": " c", "Report 2": " b "},
			ids:  []string{"Report 1", "Report 2"},
		},
		{
			name: "no labels",
			text: "nothing to see",
			want: map[string]string{},
			ids:  []string{},
		},
	}

	s := NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Split(tt.text)
			if diff := cmp.Diff(tt.want, got.Map()); diff != "" {
				t.Errorf("Split() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.ids, got.IDs()); diff != "" {
				t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSections_NonEmpty(t *testing.T) {
	got := NewDefault().Split("Report 1:   \n Report 2: colonoscopy Report 3:").NonEmpty()
	if diff := cmp.Diff([]string{"Report 2"}, got.IDs()); diff != "" {
		t.Errorf("NonEmpty() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	doc := dictionary.DemoDocument()
	sections := NewDefault().Split(doc)

	if diff := cmp.Diff([]string{"Report 1", "Report 2", "Report 3", "Report 4"}, sections.IDs()); diff != "" {
		t.Fatalf("IDs() mismatch (-want +got):\n%s", diff)
	}
	if got, want := strings.TrimSpace(sections.String()), strings.TrimSpace(doc); got != want {
		t.Errorf("round trip lost content:\n got %q\nwant %q", got, want)
	}
}

func TestNew(t *testing.T) {
	s, err := New(`(?i)section\s+(\d+)`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := s.Split("Section 2 alpha").Map()
	if diff := cmp.Diff(map[string]string{"Report 2": " alpha"}, got); diff != "" {
		t.Errorf("Split() mismatch (-want +got):\n%s", diff)
	}

	if _, err := New(`report\s*\d+`); err == nil {
		t.Error("expected error for pattern without capture group")
	}
	if _, err := New(`(`); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
