// Package ingest discovers PDFs on the local filesystem and decides which of
// them still need a pipeline run.
package ingest

import (
	"context"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	HashHex      string
	Deduplicated bool      // a succeeded run already exists for this content
	PriorRunID   uuid.UUID // set when Deduplicated
	ArtifactPath string    // artifact of the prior run, when Deduplicated
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

// Ingestor is the behavior the binaries depend on.
type Ingestor interface {
	// IngestPath validates and hashes a single path.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
