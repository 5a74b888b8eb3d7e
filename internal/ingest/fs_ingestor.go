package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/async"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

// FSIngestor reads documents from the local filesystem, records a QUEUED run
// for each and enqueues it. A document whose content was already ingested
// by this FSIngestor is reported as deduplicated and not queued again.
type FSIngestor struct {
	runs   *runs.Service
	queue  async.Queue
	mode   string
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]uuid.UUID // sha256 hex -> run id
}

func NewFSIngestor(svc *runs.Service, queue async.Queue, mode string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		runs:   svc,
		queue:  queue,
		mode:   mode,
		logger: logger,
		seen:   make(map[string]uuid.UUID),
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out = IngestionResult{SourcePath: abs, HashHex: sum, FileExt: ext}

	// The hash is reserved before Submit so concurrent callers with the same
	// content queue it once. uuid.Nil marks a reservation still in flight.
	i.mu.Lock()
	if id, ok := i.seen[sum]; ok {
		i.mu.Unlock()
		out.RunID = id
		out.Deduplicated = true
		i.logger.Debug("ingest.deduplicated", "path", abs, "run_id", id)
		return out, nil
	}
	i.seen[sum] = uuid.Nil
	i.mu.Unlock()

	run, job, err := i.submit(ctx, abs, sum)
	i.mu.Lock()
	if err != nil {
		delete(i.seen, sum)
	} else {
		i.seen[sum] = run.ID
	}
	i.mu.Unlock()
	if err != nil {
		return out, err
	}

	out.RunID = run.ID
	out.QueuedAt = job.SubmittedAt
	i.logger.Info("ingest.queued", "path", abs, "run_id", run.ID)
	return out, nil
}

func (i *FSIngestor) submit(ctx context.Context, abs, sum string) (*entity.Run, async.Job, error) {
	req := runs.Request{Path: abs, Mode: i.mode}
	run, err := i.runs.Submit(ctx, req)
	if err != nil {
		return nil, async.Job{}, err
	}
	job := async.Job{RunID: run.ID, Request: req, SubmittedAt: time.Now(), TraceID: sum[:12]}
	if err := i.queue.Enqueue(ctx, job); err != nil {
		if aerr := i.runs.Abandon(context.WithoutCancel(ctx), run.ID, err); aerr != nil {
			i.logger.Error("ingest.abandon.failed", "run_id", run.ID, "error", aerr)
		}
		return nil, async.Job{}, err
	}
	return run, job, nil
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each supported file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			if errors.Is(err, common.ErrQueueClosed) {
				return err
			}
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Watch ingests every document that appears under cfg.Roots until ctx is
// done or the watcher fails.
func (i *FSIngestor) Watch(ctx context.Context, cfg WatchConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = i.logger
	}
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := i.IngestPath(ctx, path); err != nil {
				i.logger.Warn("ingest.watch.failed", "path", path, "error", err)
				if errors.Is(err, common.ErrQueueClosed) {
					return err
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			i.logger.Warn("ingest.watch.error", "error", err)
		}
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
