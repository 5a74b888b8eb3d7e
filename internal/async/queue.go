package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

// Job is one submitted document waiting for a worker.
type Job struct {
	RunID       uuid.UUID
	Request     runs.Request
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Executor runs a submitted job to completion.
type Executor interface {
	Execute(ctx context.Context, runID uuid.UUID, req runs.Request) error
}
