package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/legal-ocr/constants"
	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/repository"
	"github.com/joseph-ayodele/legal-ocr/internal/utils"
)

// FSIngestor reads from the local filesystem. Runs may be nil, in which case
// nothing is ever deduplicated.
type FSIngestor struct {
	runs   repository.RunRepository
	logger *slog.Logger
}

func NewFSIngestor(runs repository.RunRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{runs: runs, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("ingest.abs_failed", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !constants.IsAllowedExt(ext) {
		i.logger.Warn("ingest.unsupported_ext", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	hash, err := utils.HashFile(abs)
	if err != nil {
		i.logger.Error("ingest.hash_failed", "path", abs, "error", err)
		return out, err
	}
	out.HashHex = hash

	if i.runs == nil {
		return out, nil
	}
	prior, err := i.runs.FindSucceededByHash(ctx, hash)
	switch {
	case repository.IsNotFound(err):
		return out, nil
	case err != nil:
		return out, err
	}
	out.Deduplicated = true
	out.PriorRunID = prior.ID
	out.ArtifactPath = prior.ArtifactPath
	i.logger.Info("ingest.deduplicated", "path", abs, "prior_run_id", prior.ID, "artifact", prior.ArtifactPath)
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
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
		if skipHidden && path != root && utils.IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
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
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return results, stats, err
		}
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.done", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
