package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

var (
	extractFormat string
	extractOutput string
	extractSave   bool
	extractQuiet  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract terms and codes from a .txt/.pdf document or stdin",
	Long: `Reads one document, splits it into "Report N:" sections and prints the
extraction records as JSON. Without a file argument, or with "-", the
document is read from stdin. PDF input needs pdftotext on PATH.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "json", "output format: json or xlsx")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write output to this file instead of stdout")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "record the run in the run store")
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "do not print the accuracy summary")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, extractSave)
	if err != nil {
		return err
	}
	defer a.Close()

	req := runs.Request{Mode: flagMode}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		req.Text = string(data)
		req.Source = "stdin"
	} else {
		req.Path = args[0]
	}

	var res pipeline.Result
	if extractSave {
		run, err := a.runs.Process(ctx, req)
		if err != nil {
			return err
		}
		res = pipeline.Result{Records: run.Records, Summary: run.Summary}
		fmt.Fprintf(cmd.ErrOrStderr(), "run %s %s\n", run.ID, run.Status)
	} else if res, err = a.runs.Extract(ctx, req); err != nil {
		return err
	}

	if err := writeResult(cmd.OutOrStdout(), a.export, extractFormat, extractOutput, res); err != nil {
		return err
	}
	if !extractQuiet {
		printSummary(cmd.ErrOrStderr(), res)
	}
	return nil
}

