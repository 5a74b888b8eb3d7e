package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-extractor/constants"
)

// Summary is the aggregate score over every processed report.
type Summary struct {
	Reports    int     `json:"reports"`
	Captured   int     `json:"captured"`
	Expected   int     `json:"expected"`
	Percentage float64 `json:"percentage"`
}

// Run represents one processed document for data transfer between layers.
type Run struct {
	ID           uuid.UUID           `json:"id"`
	Source       string              `json:"source"`
	Mode         string              `json:"mode"`
	Status       constants.RunStatus `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Summary      Summary             `json:"summary"`
	Records      []ExtractionRecord  `json:"records"`
}
