package constants

// RunStatus is the canonical status for rows in extraction_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"    // accepted by the async queue
	RunStatusRunning   RunStatus = "RUNNING"   // in progress
	RunStatusCompleted RunStatus = "COMPLETED" // at least one report recognized
	RunStatusEmpty     RunStatus = "EMPTY"     // no reports could be recognized
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure (text extraction, storage)
)

// Matching modes.
const (
	ModeExact = "exact"
	ModeFuzzy = "fuzzy"
)

// ReportLabel prefixes every report identity ("Report 1").
const ReportLabel = "Report"
