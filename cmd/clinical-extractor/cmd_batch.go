package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textextract"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

var (
	batchOutDir      string
	batchConcurrency int
	batchSave        bool
	batchFailFast    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract every .txt/.pdf document in a directory in parallel",
	Long: `Processes each supported document under dir (recursively) and writes one
<name>.<ext>.json records file per document. With --out the files mirror the
layout of dir below it, so a/r.txt becomes <out>/a/r.txt.json. A document that
fails is reported and skipped unless --fail-fast is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "directory for JSON output (default: alongside each document)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 4, "documents processed at once")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "record each run in the run store")
	batchCmd.Flags().BoolVar(&batchFailFast, "fail-fast", false, "stop at the first failing document")
}

type batchResult struct {
	path   string
	output string
	res    pipeline.Result
	err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, batchSave)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := collectDocuments(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .txt or .pdf documents under %s", args[0])
	}
	outputs, err := planOutputs(args[0], paths, batchOutDir)
	if err != nil {
		return err
	}
	a.logger.Info("batch.start", "documents", len(paths), "concurrency", batchConcurrency)

	results := make([]batchResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(batchConcurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = processDocument(gctx, a, path, outputs[i])
			if batchFailFast {
				return results[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := reportBatch(cmd.ErrOrStderr(), results)
	a.logger.Info("batch.done", "documents", len(paths), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

func processDocument(ctx context.Context, a *app, path, output string) batchResult {
	out := batchResult{path: path, output: output}
	req := runs.Request{Path: path, Mode: flagMode}

	if batchSave {
		run, err := a.runs.Process(ctx, req)
		if err != nil {
			out.err = err
			return out
		}
		out.res = pipeline.Result{Records: run.Records, Summary: run.Summary}
	} else {
		out.res, out.err = a.runs.Extract(ctx, req)
		if out.err != nil {
			return out
		}
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		out.err = fmt.Errorf("create output dir: %w", err)
		return out
	}
	out.err = writeResult(io.Discard, a.export, "json", out.output, out.res)
	return out
}

// collectDocuments lists supported documents under root in lexical order.
func collectDocuments(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && textextract.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// outputPath names the records file for a document found under root. The
// document's extension is kept so r.txt and r.pdf do not share an output.
func outputPath(root, path, dir string) string {
	if dir == "" {
		return path + ".json"
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	return filepath.Join(dir, rel+".json")
}

// planOutputs assigns every document its output file and rejects any two
// documents that would write the same file.
func planOutputs(root string, paths []string, dir string) ([]string, error) {
	outputs := make([]string, len(paths))
	owner := make(map[string]string, len(paths))
	for i, path := range paths {
		out := filepath.Clean(outputPath(root, path, dir))
		if prev, ok := owner[out]; ok {
			return nil, fmt.Errorf("%s and %s would both write %s", prev, path, out)
		}
		owner[out] = path
		outputs[i] = out
	}
	return outputs, nil
}

func reportBatch(w io.Writer, results []batchResult) int {
	failed := 0
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", r.path, r.err)
		case r.res.Empty():
			fmt.Fprintf(w, "EMPTY %s: no reports recognized\n", r.path)
		default:
			fmt.Fprintf(w, "OK    %s -> %s (%d reports, %.1f%%)\n", r.path, r.output, r.res.Summary.Reports, r.res.Summary.Percentage)
		}
	}
	return failed
}
