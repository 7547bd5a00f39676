package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

// ArtifactStore persists one JSON artifact per run under a directory.
type ArtifactStore struct {
	dir    string
	logger *slog.Logger
}

func NewArtifactStore(dir string, logger *slog.Logger) *ArtifactStore {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "."
	}
	return &ArtifactStore{dir: dir, logger: logger}
}

// PathFor returns where the artifact of runID is stored.
func (s *ArtifactStore) PathFor(runID uuid.UUID) string {
	return filepath.Join(s.dir, runID.String()+"_output.json")
}

// Write stores out as indented JSON with non-ASCII and HTML characters kept
// verbatim, and returns the artifact path.
func (s *ArtifactStore) Write(runID uuid.UUID, out entity.Output) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %w", common.ErrPersist, s.dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return "", fmt.Errorf("%w: encode: %w", common.ErrPersist, err)
	}

	path := s.PathFor(runID)
	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrPersist, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write: %w", common.ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: close: %w", common.ErrPersist, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: rename: %w", common.ErrPersist, err)
	}
	s.logger.Info("artifact.written", "run_id", runID, "path", path, "bytes", buf.Len())
	return path, nil
}

// Read loads a previously written artifact.
func (s *ArtifactStore) Read(path string) (*entity.Output, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", path, common.ErrNotFound)
		}
		return nil, err
	}
	var out entity.Output
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return &out, nil
}
