package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
)

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Inspect the term dictionaries",
}

var dictionaryShowCmd = &cobra.Command{
	Use:   "show [report-id]",
	Short: "Print one dictionary entry, or all of them, as YAML",
	Long: `Prints the dictionary in effect (built-in or --dictionary). The report id
may be given as "Report 2" or just 2.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDictionaryShow,
}

func init() {
	dictionaryCmd.AddCommand(dictionaryShowCmd)
}

func runDictionaryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := dictionary.LoadFile(cfg.Extraction.DictionaryPath)
	if err != nil {
		return err
	}

	ids := store.IDs()
	if len(args) == 1 {
		id := args[0]
		if _, err := strconv.Atoi(id); err == nil {
			id = constants.ReportLabel + " " + id
		}
		if !store.Has(id) {
			return fmt.Errorf("no dictionary entry for %q (known: %v)", id, ids)
		}
		ids = []string{id}
	}

	entries := make([]dictionary.TermDictionary, 0, len(ids))
	for _, id := range ids {
		entry, _ := store.Entry(id)
		entries = append(entries, entry)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(map[string]interface{}{"reports": entries})
}
