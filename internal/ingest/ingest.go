// Package ingest discovers clinical documents on disk and hands them to the
// async run queue.
package ingest

import (
	"time"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	RunID        uuid.UUID
	Deduplicated bool
	HashHex      string
	FileExt      string
	QueuedAt     time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
