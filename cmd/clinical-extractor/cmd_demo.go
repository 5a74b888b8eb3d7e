package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

var (
	demoFormat string
	demoOutput string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the pipeline on the built-in four-report document",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().StringVarP(&demoFormat, "format", "f", "json", "output format: json or xlsx")
	demoCmd.Flags().StringVarP(&demoOutput, "output", "o", "", "write output to this file instead of stdout")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.runs.Extract(cmd.Context(), runs.Request{Source: "demo", Text: dictionary.DemoDocument(), Mode: flagMode})
	if err != nil {
		return err
	}
	if err := writeResult(cmd.OutOrStdout(), a.export, demoFormat, demoOutput, res); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), res)
	return nil
}
