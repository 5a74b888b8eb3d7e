package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/async"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/clinical-extractor/internal/core/textextract"
	"github.com/joseph-ayodele/clinical-extractor/internal/dictionary"
	"github.com/joseph-ayodele/clinical-extractor/internal/repository"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func (q *recordingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func newIngestor(t *testing.T, queue async.Queue) (*FSIngestor, *runs.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := repository.Migrate(ctx, db); err != nil {
		t.Fatal(err)
	}
	svc := runs.NewService(
		pipeline.NewDefault(logger, dictionary.Default()),
		textextract.NewExtractor(textextract.Config{}, logger),
		repository.NewRunRepository(db, logger),
		logger,
	)
	return NewFSIngestor(svc, queue, "", logger), svc
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFSIngestor_IngestDirectory(t *testing.T) {
	queue := &recordingQueue{}
	ing, svc := newIngestor(t, queue)
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), "Report 1: colonoscopy")
	writeFile(t, filepath.Join(root, "sub", "copy.txt"), "Report 1: colonoscopy")
	writeFile(t, filepath.Join(root, "b.text"), "Report 4: hemorrhoids")
	writeFile(t, filepath.Join(root, "notes.docx"), "ignored")
	writeFile(t, filepath.Join(root, ".hidden", "c.txt"), "Report 2: hidden")

	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}
	if stats.Matched != 3 || stats.Succeeded != 3 || stats.Deduplicated != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(results) != 3 || queue.len() != 2 {
		t.Fatalf("results = %d, queued = %d", len(results), queue.len())
	}

	for _, job := range queue.jobs {
		run, err := svc.Get(context.Background(), job.RunID.String())
		if err != nil {
			t.Fatal(err)
		}
		if run.Status != constants.RunStatusQueued {
			t.Errorf("run %s status = %s", run.ID, run.Status)
		}
	}
}

func TestFSIngestor_IngestPathErrors(t *testing.T) {
	ing, _ := newIngestor(t, &recordingQueue{})
	dir := t.TempDir()

	if _, err := ing.IngestPath(context.Background(), filepath.Join(dir, "scan.png")); !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Errorf("png error = %v", err)
	}
	if _, err := ing.IngestPath(context.Background(), filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, _, err := ing.IngestDirectory(context.Background(), " ", false); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("blank root error = %v", err)
	}
}

func TestFSIngestor_QueueClosedAbandonsRun(t *testing.T) {
	ing, svc := newIngestor(t, &recordingQueue{err: common.ErrQueueClosed})
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "Report 3: EGD")

	if _, err := ing.IngestPath(context.Background(), path); !errors.Is(err, common.ErrQueueClosed) {
		t.Fatalf("IngestPath() error = %v", err)
	}
	list, err := svc.List(context.Background(), 5)
	if err != nil || len(list) != 1 || list[0].Status != constants.RunStatusFailed {
		t.Errorf("runs = %+v, err %v", list, err)
	}
}

func TestFSIngestor_ConcurrentSameContentQueuedOnce(t *testing.T) {
	queue := &recordingQueue{}
	ing, _ := newIngestor(t, queue)
	dir := t.TempDir()
	const n = 8
	for k := 0; k < n; k++ {
		writeFile(t, filepath.Join(dir, "copy"+string(rune('a'+k))+".txt"), "Report 1: colonoscopy")
	}

	results := make([]IngestionResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for k := 0; k < n; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[k], errs[k] = ing.IngestPath(context.Background(), filepath.Join(dir, "copy"+string(rune('a'+k))+".txt"))
		}()
	}
	wg.Wait()

	queued := 0
	for k := range results {
		if errs[k] != nil {
			t.Fatalf("IngestPath(%d) error = %v", k, errs[k])
		}
		if !results[k].Deduplicated {
			queued++
		}
	}
	if queued != 1 || queue.len() != 1 {
		t.Errorf("queued %d results and %d jobs, want 1 each", queued, queue.len())
	}
}

func TestFSIngestor_FailedEnqueueReleasesHash(t *testing.T) {
	queue := &recordingQueue{err: common.ErrQueueClosed}
	ing, _ := newIngestor(t, queue)
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "Report 2: EGD")

	if _, err := ing.IngestPath(context.Background(), path); !errors.Is(err, common.ErrQueueClosed) {
		t.Fatalf("first IngestPath() error = %v", err)
	}

	queue.mu.Lock()
	queue.err = nil
	queue.mu.Unlock()
	res, err := ing.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatalf("retry IngestPath() error = %v", err)
	}
	if res.Deduplicated || queue.len() != 1 {
		t.Errorf("retry = %+v with %d jobs, want a fresh queued run", res, queue.len())
	}
}

func TestStartWatcher_EmitsNewDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.txt"), "Report 1:")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("StartWatcher() error = %v", err)
	}

	want := map[string]bool{
		filepath.Join(root, "existing.txt"): false,
		filepath.Join(root, "new.pdf"):      false,
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(root, "ignored.docx"), []byte("x"), 0o600)
		_ = os.WriteFile(filepath.Join(root, "new.pdf"), []byte("%PDF-1.4"), 0o600)
	}()

	timeout := time.After(5 * time.Second)
	for seen := 0; seen < len(want); {
		select {
		case p := <-events:
			done, ok := want[p]
			if !ok {
				t.Fatalf("unexpected event %q", p)
			}
			if !done {
				want[p] = true
				seen++
			}
		case <-timeout:
			t.Fatalf("timed out; events seen = %v", want)
		}
	}

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Error("expected error")
	}
}
