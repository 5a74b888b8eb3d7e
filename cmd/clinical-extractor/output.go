package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
	"github.com/joseph-ayodele/clinical-extractor/internal/export"
)

// writeResult renders res as JSON records or an XLSX workbook to path, or to
// w when path is empty.
func writeResult(w io.Writer, exp *export.Service, format, path string, res pipeline.Result) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "", "json":
		data, err = exp.JSON(res.Records)
	case "xlsx":
		if path == "" {
			return fmt.Errorf("xlsx output needs --output")
		}
		data, err = exp.XLSX(res.Records, res.Summary)
	default:
		return fmt.Errorf("unsupported format %q (want json or xlsx)", format)
	}
	if err != nil {
		return err
	}
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// printSummary writes the per-report accuracy table and the aggregate line.
func printSummary(w io.Writer, res pipeline.Result) {
	if res.Empty() {
		fmt.Fprintln(w, "WARNING: no reports recognized")
		return
	}
	for _, r := range res.Records {
		fmt.Fprintf(w, "%-10s %s\n", r.ReportID, accuracyText(r.Accuracy))
	}
	fmt.Fprintf(w, "Overall    %.1f%% (%d/%d over %d reports)\n",
		res.Summary.Percentage, res.Summary.Captured, res.Summary.Expected, res.Summary.Reports)
}

func accuracyText(a *entity.Accuracy) string {
	if a == nil {
		return "-"
	}
	return fmt.Sprintf("%5.1f%% (%s)", a.Percentage, a.Count)
}
