package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is one pipeline execution recorded in the run ledger.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	SourcePath   string     `json:"source_path"`
	ContentHash  string     `json:"content_hash"`
	Status       string     `json:"status"`
	Pages        int        `json:"pages"`
	Tables       int        `json:"tables"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
