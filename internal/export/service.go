// Package export serializes extraction records to JSON and XLSX.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

//go:embed schema.json
var recordsSchema []byte

// Service produces export documents for extraction records.
type Service struct {
	logger *slog.Logger
	indent int
	schema *jsonschema.Schema
}

// NewService returns a Service indenting JSON by indent spaces (2 or 4).
func NewService(logger *slog.Logger, indent int) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if indent != 2 && indent != 4 {
		return nil, fmt.Errorf("%w: json indent must be 2 or 4, got %d", common.ErrInvalidInput, indent)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("records.json", bytes.NewReader(recordsSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("records.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Service{logger: logger, indent: indent, schema: schema}, nil
}

// JSON renders records as an indented array and checks it against the
// export schema.
func (s *Service) JSON(records []entity.ExtractionRecord) ([]byte, error) {
	if records == nil {
		records = []entity.ExtractionRecord{}
	}
	data, err := json.MarshalIndent(records, "", strings.Repeat(" ", s.indent))
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	if err := s.Validate(data); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Validate checks data against the export schema.
func (s *Service) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: unmarshal data: %v", common.ErrInvalidInput, err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %v", common.ErrValidation, err)
	}
	return nil
}

// XLSX returns a workbook with one row per record and a closing overall row.
func (s *Service) XLSX(records []entity.ExtractionRecord, summary entity.Summary) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Reports"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{constants.ReportLabel}
	for _, cat := range constants.Categories() {
		headers = append(headers, string(cat))
	}
	headers = append(headers, constants.CodeICD10, constants.CodeCPT, constants.CodeHCPCS, "Accuracy %", "Count")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for _, r := range records {
		write(1, r.ReportID)
		col := 2
		for _, cat := range constants.Categories() {
			write(col, strings.Join(r.Terms(cat), "; "))
			col++
		}
		write(col, strings.Join(r.ICD10, ", "))
		write(col+1, strings.Join(r.CPT, ", "))
		write(col+2, strings.Join(r.HCPCS, ", "))
		if r.Accuracy != nil {
			write(col+3, r.Accuracy.Percentage)
			write(col+4, r.Accuracy.Count)
		}
		row++
	}

	// Overall
	write(1, "Overall")
	write(len(headers)-1, summary.Percentage)
	write(len(headers), fmt.Sprintf("%d/%d", summary.Captured, summary.Expected))

	_ = f.SetColWidth(sheet, "A", "A", 12) // report
	_ = f.SetColWidth(sheet, "B", "E", 48) // terms
	_ = f.SetColWidth(sheet, "F", "H", 24) // codes
	_ = f.SetColWidth(sheet, "I", "J", 12) // accuracy

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
