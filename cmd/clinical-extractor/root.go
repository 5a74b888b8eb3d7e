package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagMode       string
	flagDictionary string
	flagDB         string
	flagLogLevel   string
	flagIndent     int
)

var rootCmd = &cobra.Command{
	Use:   "clinical-extractor",
	Short: "Extract clinical terms and billing codes from colonoscopy/EGD reports",
	Long: `clinical-extractor splits a clinical document into labelled reports, matches
each report against its term dictionary, pulls ICD-10 and CPT codes, and
scores every report against its expected number of findings.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagMode, "mode", "", "matching mode: exact or fuzzy (default from EXTRACT_MODE)")
	pf.StringVar(&flagDictionary, "dictionary", "", "YAML term dictionary file (default: built-in)")
	pf.StringVar(&flagDB, "db", "", "run store DSN (default from DB_URL)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	pf.IntVar(&flagIndent, "indent", 0, "JSON indent, 2 or 4 (default from JSON_INDENT)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(dictionaryCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
