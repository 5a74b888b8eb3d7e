// Package textextract turns report documents (.pdf, .txt) into plain text.
package textextract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textnorm"
)

// DefaultMaxBytes bounds documents read from disk.
const DefaultMaxBytes = 10 << 20

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxBytes  int64  // 0 = DefaultMaxBytes
}

type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.TEXT
	Method     string // "pdftotext" | "plain"
	Duration   time.Duration
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, logger, execRunner{})
}

// NewExtractorWithRunner is NewExtractor with a custom command runner.
func NewExtractorWithRunner(cfg Config, logger *slog.Logger, runner Runner) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Supported reports whether path has an extension Extract understands.
func Supported(path string) bool {
	return constants.MapExtToFormat(filepath.Ext(path)) != ""
}

// Extract picks a strategy based on file extension and returns cleaned text.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting text extraction", "path", path, "ext", ext)

	var (
		res Result
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.TEXT:
		res, err = e.extractPlain(path)
	default:
		e.logger.Error("unsupported extension", "extension", ext)
		return Result{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Text = textnorm.Clean(res.Text)
	e.logger.Debug("text extraction ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	res := Result{SourceType: constants.PDF, Method: "pdftotext"}
	if _, err := os.Stat(path); err != nil {
		return res, fmt.Errorf("stat %q: %w", path, err)
	}
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return res, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	if int64(len(out)) > e.cfg.MaxBytes {
		return res, fmt.Errorf("%w: extracted text exceeds %d bytes", common.ErrInvalidInput, e.cfg.MaxBytes)
	}
	res.Text = string(out)
	// A form-feed \f is used as page separator by default
	res.Pages = 1 + strings.Count(strings.TrimRight(res.Text, "\f"), "\f")
	res.Text = strings.ReplaceAll(res.Text, "\f", "\n")
	return res, nil
}

func (e *Extractor) extractPlain(path string) (Result, error) {
	res := Result{SourceType: constants.TEXT, Method: "plain", Pages: 1}
	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, e.cfg.MaxBytes+1))
	if err != nil {
		return res, fmt.Errorf("read %q: %w", path, err)
	}
	if int64(len(data)) > e.cfg.MaxBytes {
		return res, fmt.Errorf("%w: %q exceeds %d bytes", common.ErrInvalidInput, path, e.cfg.MaxBytes)
	}
	if !utf8.Valid(data) {
		return res, fmt.Errorf("%w: %q is not UTF-8 text", common.ErrInvalidInput, path)
	}
	res.Text = string(data)
	return res, nil
}
