// Package runs processes documents end to end and records each run.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textextract"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
	"github.com/joseph-ayodele/clinical-extractor/internal/repository"
)

// Request names one document. Exactly one of Text or Path is set.
type Request struct {
	Source string // label stored with the run; defaults to the file name
	Text   string
	Path   string
	Mode   string // matching mode; empty selects the default processor
}

// Service handles run business logic. A nil repository disables persistence.
type Service struct {
	proc   *pipeline.Processor
	modes  map[string]*pipeline.Processor
	text   *textextract.Extractor
	repo   repository.RunRepository
	logger *slog.Logger
}

type Option func(*Service)

// WithProcessor makes p selectable by its matching mode.
func WithProcessor(p *pipeline.Processor) Option {
	return func(s *Service) {
		if p != nil {
			s.modes[p.Mode()] = p
		}
	}
}

func NewService(proc *pipeline.Processor, text *textextract.Extractor, repo repository.RunRepository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		proc:   proc,
		modes:  map[string]*pipeline.Processor{proc.Mode(): proc},
		text:   text,
		repo:   repo,
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DefaultMode is the mode used when a request names none.
func (s *Service) DefaultMode() string { return s.proc.Mode() }

// Modes returns the selectable matching modes.
func (s *Service) Modes() []string {
	return slices.Sorted(maps.Keys(s.modes))
}

// Extract runs the pipeline without recording a run.
func (s *Service) Extract(ctx context.Context, req Request) (pipeline.Result, error) {
	proc, err := s.validate(req)
	if err != nil {
		return pipeline.Result{}, err
	}
	text, err := s.documentText(ctx, req)
	if err != nil {
		return pipeline.Result{}, err
	}
	return proc.Process(text), nil
}

// Persistent reports whether runs are stored.
func (s *Service) Persistent() bool { return s.repo != nil }

// Process runs the pipeline synchronously and stores the run.
// A document with no recognized report yields status EMPTY, not an error.
func (s *Service) Process(ctx context.Context, req Request) (*entity.Run, error) {
	proc, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	run := s.newRun(proc, req)
	ctx = common.WithRunID(ctx, run.ID.String())
	if err := s.execute(ctx, proc, run, req); err != nil {
		if s.repo != nil && run.Status == constants.RunStatusFailed {
			if perr := s.repo.Create(ctx, run); perr != nil {
				s.contextLogger(ctx).Error("runs.persist.failed", "error", perr)
			}
		}
		return run, err
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, run); err != nil {
			return run, err
		}
	}
	return run, nil
}

// Submit stores a QUEUED run for later Execute.
func (s *Service) Submit(ctx context.Context, req Request) (*entity.Run, error) {
	if s.repo == nil {
		return nil, common.NewAppError("NO_STORE", "async runs need a run store", common.ErrInvalidInput)
	}
	proc, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	run := s.newRun(proc, req)
	run.Status = constants.RunStatusQueued
	run.Records = []entity.ExtractionRecord{}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, err
	}
	s.contextLogger(common.WithRunID(ctx, run.ID.String())).Info("runs.submitted", "source", run.Source)
	return run, nil
}

// Abandon marks a submitted run FAILED when it could not be handed to a worker.
func (s *Service) Abandon(ctx context.Context, runID uuid.UUID, cause error) error {
	if s.repo == nil {
		return nil
	}
	run, err := s.repo.Get(ctx, runID)
	if err != nil {
		return err
	}
	run.Status = constants.RunStatusFailed
	run.ErrorMessage = cause.Error()
	return s.repo.Update(ctx, run)
}

// Execute processes a submitted run and records its outcome.
func (s *Service) Execute(ctx context.Context, runID uuid.UUID, req Request) error {
	if s.repo == nil {
		return common.NewAppError("NO_STORE", "async runs need a run store", common.ErrInvalidInput)
	}
	if common.RunIDFromContext(ctx) == "" {
		ctx = common.WithRunID(ctx, runID.String())
	}
	run, err := s.repo.Get(ctx, runID)
	if err != nil {
		return err
	}
	proc, err := s.validate(req)
	if err != nil {
		s.contextLogger(ctx).Warn("runs.execute.rejected", "error", err)
		run.Status = constants.RunStatusFailed
		run.ErrorMessage = err.Error()
		return errors.Join(err, s.repo.Update(ctx, run))
	}
	run.Status = constants.RunStatusRunning
	if err := s.repo.Update(ctx, run); err != nil {
		return err
	}

	procErr := s.execute(ctx, proc, run, req)
	if err := s.repo.Update(ctx, run); err != nil {
		return errors.Join(procErr, err)
	}
	return procErr
}

// Get returns a stored run with its records.
func (s *Service) Get(ctx context.Context, id string) (*entity.Run, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	validator := common.NewValidator().Field("id", id, common.Required, common.UUID)
	if validator.HasErrors() {
		s.logger.Error("invalid run id", "id", id, "error", validator.ErrorMessage())
		return nil, validator.Error()
	}
	return s.repo.Get(ctx, uuid.MustParse(id))
}

// List returns recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*entity.Run, error) {
	if s.repo == nil {
		return []*entity.Run{}, nil
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) newRun(proc *pipeline.Processor, req Request) *entity.Run {
	source := req.Source
	if source == "" && req.Path != "" {
		source = filepath.Base(req.Path)
	}
	if source == "" {
		source = "inline"
	}
	return &entity.Run{
		ID:        uuid.New(),
		Source:    source,
		Mode:      proc.Mode(),
		CreatedAt: time.Now().UTC(),
	}
}

// contextLogger tags log lines with the run and request IDs carried by ctx.
func (s *Service) contextLogger(ctx context.Context) *slog.Logger {
	logger := s.logger
	if id := common.RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if id := common.RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}

// execute fills run in place. On failure run carries status FAILED.
func (s *Service) execute(ctx context.Context, proc *pipeline.Processor, run *entity.Run, req Request) error {
	start := time.Now()
	logger := s.contextLogger(ctx)
	text, err := s.documentText(ctx, req)
	if err != nil {
		run.Status = constants.RunStatusFailed
		run.ErrorMessage = err.Error()
		run.Records = []entity.ExtractionRecord{}
		logger.Error("runs.text_extract.failed", "source", run.Source, "error", err)
		return err
	}

	result := proc.Process(text)
	run.Records = result.Records
	run.Summary = result.Summary
	run.Status = constants.RunStatusCompleted
	if result.Empty() {
		run.Status = constants.RunStatusEmpty
		logger.Warn("runs.empty", "source", run.Source)
	}
	logger.Info("runs.processed",
		"source", run.Source,
		"status", run.Status,
		"reports", run.Summary.Reports,
		"percentage", run.Summary.Percentage,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Service) documentText(ctx context.Context, req Request) (string, error) {
	if req.Path == "" {
		return req.Text, nil
	}
	if s.text == nil {
		return "", fmt.Errorf("%w: file input is disabled", common.ErrInvalidInput)
	}
	res, err := s.text.Extract(ctx, req.Path)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", filepath.Base(req.Path), err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Text, nil
}

func (s *Service) validate(req Request) (*pipeline.Processor, error) {
	hasText := strings.TrimSpace(req.Text) != ""
	hasPath := req.Path != ""
	switch {
	case hasText && hasPath:
		return nil, fmt.Errorf("%w: set either text or path, not both", common.ErrInvalidInput)
	case !hasText && !hasPath:
		return nil, fmt.Errorf("%w: text is required", common.ErrInvalidInput)
	case hasPath && !textextract.Supported(req.Path):
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Ext(req.Path))
	}
	if req.Mode == "" {
		return s.proc, nil
	}
	proc, ok := s.modes[strings.ToLower(req.Mode)]
	if !ok {
		return nil, fmt.Errorf("%w: mode %q is not one of %v", common.ErrInvalidInput, req.Mode, s.Modes())
	}
	return proc, nil
}
