// Package async runs pipeline jobs on a bounded pool of background workers.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one PDF waiting for a pipeline run.
type Job struct {
	Path        string
	Hash        string // sha256 hex of the content, computed at ingest
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
