// Package segment splits a combined document into labeled report sections.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/clinical-extractor/constants"
)

// DefaultLabelPattern matches "Report 3", "REPORT3:" and similar labels.
// The first capture group is the report numeral.
const DefaultLabelPattern = `(?i)report\s*(\d+)\s*:?`

// Section is the text that followed one report label.
type Section struct {
	ID    string // "Report N"
	Label string // label as written in the document
	Text  string
}

// Sections keeps sections in the order their labels were first seen.
type Sections []Section

// Segmenter is safe for concurrent use.
type Segmenter struct {
	label *regexp.Regexp
}

// New compiles a label pattern. The pattern needs a capture group for the numeral.
func New(pattern string) (*Segmenter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile label pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("label pattern %q has no capture group", pattern)
	}
	return &Segmenter{label: re}, nil
}

// NewDefault returns a Segmenter using DefaultLabelPattern.
func NewDefault() *Segmenter {
	return &Segmenter{label: regexp.MustCompile(DefaultLabelPattern)}
}

// Split walks text label by label. Text before the first label is dropped.
// A label seen twice restarts that report's text in its original position.
func (s *Segmenter) Split(text string) Sections {
	matches := s.label.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return Sections{}
	}

	var out Sections
	index := make(map[string]int, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		id := constants.ReportLabel + " " + text[m[2]:m[3]]
		sec := Section{ID: id, Label: text[m[0]:m[1]], Text: text[m[1]:end]}
		if at, seen := index[id]; seen {
			out[at] = sec
			continue
		}
		index[id] = len(out)
		out = append(out, sec)
	}
	return out
}

// NonEmpty drops sections whose text is blank.
func (s Sections) NonEmpty() Sections {
	out := make(Sections, 0, len(s))
	for _, sec := range s {
		if strings.TrimSpace(sec.Text) != "" {
			out = append(out, sec)
		}
	}
	return out
}

// Map returns report identity to text.
func (s Sections) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, sec := range s {
		m[sec.ID] = sec.Text
	}
	return m
}

// IDs returns the report identities in order.
func (s Sections) IDs() []string {
	ids := make([]string, len(s))
	for i, sec := range s {
		ids[i] = sec.ID
	}
	return ids
}

// String joins every label with its text in order.
func (s Sections) String() string {
	var b strings.Builder
	for _, sec := range s {
		b.WriteString(sec.Label)
		b.WriteString(sec.Text)
	}
	return b.String()
}
