// Package pipeline runs the three extraction passes over one PDF, joins their
// results by page number and persists a single JSON artifact.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
	"github.com/joseph-ayodele/legal-ocr/internal/metadata"
	"github.com/joseph-ayodele/legal-ocr/internal/ocr"
	"github.com/joseph-ayodele/legal-ocr/internal/pdftext"
	"github.com/joseph-ayodele/legal-ocr/internal/repository"
	"github.com/joseph-ayodele/legal-ocr/internal/utils"
)

// Rasterizer renders every page of a PDF to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([]ocr.PageImage, error)
}

// TableNormalizer turns one HTML table fragment into structured tables.
type TableNormalizer interface {
	Normalize(fragment string) ([]entity.Table, error)
}

// ArtifactWriter persists the output of one run and returns where it went.
type ArtifactWriter interface {
	Write(runID uuid.UUID, out entity.Output) (string, error)
}

// Deps are the collaborators of a Processor. Runs and Artifacts may be nil;
// every other field is required.
type Deps struct {
	Text      pdftext.Extractor
	Raster    Rasterizer
	Layout    ocr.LayoutEngine
	Tables    TableNormalizer
	Metadata  metadata.PageExtractor
	Runs      repository.RunRepository
	Artifacts ArtifactWriter
	Progress  Progress
}

type Config struct {
	Workers     int           // pages processed concurrently within a stage; default 1
	PageTimeout time.Duration // per collaborator call; 0 = none
	RunTimeout  time.Duration // whole run; 0 = none
}

// Result summarizes one successful run.
type Result struct {
	RunID        uuid.UUID
	SourcePath   string
	ContentHash  string
	Document     *entity.Document
	ArtifactPath string
	Duration     time.Duration
}

// Processor coordinates text extraction, OCR with table normalization and
// metadata extraction for one document at a time.
type Processor struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

func NewProcessor(deps Deps, cfg Config, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Text == nil || deps.Raster == nil || deps.Layout == nil || deps.Tables == nil || deps.Metadata == nil {
		return nil, fmt.Errorf("%w: pipeline requires text, raster, layout, tables and metadata collaborators", common.ErrInvalidInput)
	}
	if deps.Progress == nil {
		deps.Progress = NopProgress{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Processor{deps: deps, cfg: cfg, logger: logger}, nil
}

// Process hashes the file at path and runs the full pipeline on it.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	hash, err := utils.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrOpenDocument, err)
	}
	return p.ProcessWithHash(ctx, path, hash)
}

// ProcessWithHash runs the pipeline for a file whose content hash is already known.
// Fatal stage errors mark the run FAILED and are returned wrapped.
func (p *Processor) ProcessWithHash(ctx context.Context, path, hash string) (*Result, error) {
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}
	t0 := time.Now()

	runID := uuid.New()
	if p.deps.Runs != nil {
		run, err := p.deps.Runs.Start(ctx, path, hash)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}
	ctx = common.WithRunID(ctx, runID.String())
	log := p.logger.With("run_id", runID, "path", path)
	log.Info("pipeline.run.start", "hash", hash, "workers", p.cfg.Workers)

	doc, err := p.extract(ctx, log, path)
	if err != nil {
		p.fail(ctx, log, runID, err)
		return nil, err
	}

	res := &Result{RunID: runID, SourcePath: path, ContentHash: hash, Document: doc}
	if p.deps.Artifacts != nil {
		artifact, err := p.deps.Artifacts.Write(runID, doc.Output())
		if err != nil {
			p.fail(ctx, log, runID, err)
			return nil, err
		}
		res.ArtifactPath = artifact
	}

	if p.deps.Runs != nil {
		if err := p.deps.Runs.FinishSuccess(ctx, runID, len(doc.Pages), doc.TableCount(), res.ArtifactPath); err != nil {
			log.Error("pipeline.run.ledger_failed", "err", err)
			return res, err
		}
	}
	res.Duration = time.Since(t0)
	log.Info("pipeline.run.ok",
		"pages", len(doc.Pages),
		"tables", doc.TableCount(),
		"artifact", res.ArtifactPath,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// extract runs the three passes in order and joins them.
func (p *Processor) extract(ctx context.Context, log *slog.Logger, path string) (*entity.Document, error) {
	texts, err := p.textPass(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("text pass: %w", err)
	}
	ocrPages, err := p.ocrPass(ctx, log, path)
	if err != nil {
		return nil, fmt.Errorf("ocr pass: %w", err)
	}
	metas, err := p.metadataPass(ctx, log, texts)
	if err != nil {
		return nil, fmt.Errorf("metadata pass: %w", err)
	}
	return join(path, texts, ocrPages, metas, log), nil
}

// fail records a terminal failure even if ctx is already cancelled.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, runID uuid.UUID, cause error) {
	log.Error("pipeline.run.failed", "err", cause, "fatal", common.IsFatal(cause))
	if p.deps.Runs == nil {
		return
	}
	if err := p.deps.Runs.FinishFailure(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
		log.Error("pipeline.run.ledger_failed", "err", err)
	}
}
