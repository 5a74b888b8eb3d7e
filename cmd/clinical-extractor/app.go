package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textextract"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/export"
	"github.com/joseph-ayodele/clinical-extractor/internal/logging"
	"github.com/joseph-ayodele/clinical-extractor/internal/repository"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
	store  *dictionary.Store
	runs   *runs.Service
	export *export.Service
	db     *repository.DB
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*common.Config, error) {
	cfg := common.LoadConfig()
	if flagMode != "" {
		cfg.Extraction.Mode = strings.ToLower(flagMode)
	}
	if flagDictionary != "" {
		cfg.Extraction.DictionaryPath = flagDictionary
	}
	if flagDB != "" {
		cfg.Database.DSN = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagIndent != 0 {
		cfg.Extraction.JSONIndent = flagIndent
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the pipeline. With persist set the run store is opened and
// migrated; otherwise runs are processed without being recorded.
func newApp(ctx context.Context, persist bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)

	store, err := dictionary.LoadFile(cfg.Extraction.DictionaryPath)
	if err != nil {
		return nil, err
	}

	primary, err := pipeline.New(logger, store, cfg.Extraction)
	if err != nil {
		return nil, err
	}
	// The other mode stays selectable per request.
	alt := cfg.Extraction
	alt.Mode = constants.ModeExact
	if primary.Mode() == constants.ModeExact {
		alt.Mode = constants.ModeFuzzy
	}
	secondary, err := pipeline.New(logger, store, alt)
	if err != nil {
		return nil, err
	}

	exp, err := export.NewService(logger, cfg.Extraction.JSONIndent)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: store, export: exp}
	var repo repository.RunRepository
	if persist {
		if a.db, err = openStore(ctx, cfg.Database, logger); err != nil {
			return nil, err
		}
		repo = repository.NewRunRepository(a.db, logger)
	}

	text := textextract.NewExtractor(textextract.Config{
		Pdftotext: cfg.TextExtract.Pdftotext,
		MaxBytes:  cfg.TextExtract.MaxBytes,
	}, logger)
	a.runs = runs.NewService(primary, text, repo, logger, runs.WithProcessor(secondary))
	return a, nil
}

func openStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("migrate run store: %w", err)
	}
	return db, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close(a.logger)
	}
}
