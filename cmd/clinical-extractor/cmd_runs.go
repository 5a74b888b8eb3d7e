package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
)

var (
	runsLimit  int
	runsFormat string
	runsOutput string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded extraction runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Print the records of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
	runsGetCmd.Flags().StringVarP(&runsFormat, "format", "f", "json", "output format: json or xlsx")
	runsGetCmd.Flags().StringVarP(&runsOutput, "output", "o", "", "write output to this file instead of stdout")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsGetCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.runs.List(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tMODE\tSTATUS\tREPORTS\tACCURACY")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.1f%%\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.Mode, r.Status,
			r.Summary.Reports, r.Summary.Percentage)
	}
	return tw.Flush()
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runs.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "run %s %s: %s\n", run.ID, run.Status, run.ErrorMessage)
	}
	res := pipeline.Result{Records: run.Records, Summary: run.Summary}
	return writeResult(cmd.OutOrStdout(), a.export, runsFormat, runsOutput, res)
}
