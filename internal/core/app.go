// Package core wires configuration into a ready-to-run pipeline and the
// services around it. Both binaries build on App.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/export"
	"github.com/joseph-ayodele/legal-ocr/internal/inference"
	"github.com/joseph-ayodele/legal-ocr/internal/ingest"
	"github.com/joseph-ayodele/legal-ocr/internal/metadata"
	"github.com/joseph-ayodele/legal-ocr/internal/nlp"
	"github.com/joseph-ayodele/legal-ocr/internal/nlp/openai"
	"github.com/joseph-ayodele/legal-ocr/internal/ocr"
	"github.com/joseph-ayodele/legal-ocr/internal/pdftext"
	"github.com/joseph-ayodele/legal-ocr/internal/pipeline"
	"github.com/joseph-ayodele/legal-ocr/internal/repository"
	"github.com/joseph-ayodele/legal-ocr/internal/tables"
)

// App holds every long-lived handle of a process.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	Runs      repository.RunRepository
	Artifacts *repository.ArtifactStore
	Processor *pipeline.Processor
	Ingestor  *ingest.FSIngestor
	Export    *export.Service

	logger  *slog.Logger
	closers []func() error
}

// NewApp opens the run ledger, builds the collaborators named by cfg and the
// processor over them. Call Close when done.
func NewApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error { db.Close(); return nil })

	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		a.Close()
		return nil, fmt.Errorf("%w: ping: %w", common.ErrDatabase, err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Runs = repository.NewRunRepository(db, logger)
	a.Artifacts = repository.NewArtifactStore(cfg.Output.Dir, logger)
	a.Ingestor = ingest.NewFSIngestor(a.Runs, logger)
	a.Export = export.NewService(logger)

	runner := ocr.NewExecRunner(logger)
	layout, err := a.layoutEngine()
	if err != nil {
		a.Close()
		return nil, err
	}

	proc, err := pipeline.NewProcessor(pipeline.Deps{
		Text:      a.textExtractor(runner),
		Raster:    ocr.NewRasterizer(ocr.RasterConfig{Pdftoppm: cfg.OCR.Pdftoppm, DPI: cfg.OCR.DPI, MaxDimension: cfg.OCR.MaxDimension}, runner, logger),
		Layout:    layout,
		Tables:    tables.NewNormalizer(logger),
		Metadata:  a.metadataExtractor(ctx),
		Runs:      a.Runs,
		Artifacts: a.Artifacts,
		Progress:  pipeline.NewLogProgress(logger, cfg.Pipeline.ProgressEvery),
	}, pipeline.Config{
		Workers:     cfg.Pipeline.Workers,
		PageTimeout: cfg.Pipeline.PageTimeout,
		RunTimeout:  cfg.Pipeline.RunTimeout,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Processor = proc
	return a, nil
}

// Close releases handles in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("app.close_failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) endpoint(url string) inference.Endpoint {
	return inference.Endpoint{URL: url, Token: a.Config.Models.APIToken, Timeout: a.Config.Models.Timeout}
}

func (a *App) textExtractor(runner ocr.Runner) pdftext.Extractor {
	if a.Config.OCR.TextExtractor == "pdftotext" {
		return pdftext.NewPoppler(a.Config.OCR.Pdftotext, runner, a.logger)
	}
	return pdftext.NewReader(a.logger)
}

// layoutEngine prefers the hosted layout model; Tesseract is the local fallback.
func (a *App) layoutEngine() (ocr.LayoutEngine, error) {
	if url := a.Config.OCR.LayoutEndpoint; url != "" {
		a.logger.Info("app.layout.remote", "url", url)
		return ocr.NewRemoteLayout(a.endpoint(url), a.logger), nil
	}
	tess, err := ocr.NewTesseract(ocr.TesseractConfig{
		Lang:        a.Config.OCR.TesseractLang,
		TessdataDir: a.Config.OCR.TessdataDir,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, tess.Close)
	a.logger.Info("app.layout.tesseract", "lang", a.Config.OCR.TesseractLang)
	return tess, nil
}

func (a *App) metadataExtractor(ctx context.Context) metadata.PageExtractor {
	m := a.Config.Models
	var (
		ling nlp.LinguisticModel
		ner  nlp.DomainNER
		cls  nlp.ClauseClassifier
	)
	if m.LinguisticEndpoint != "" {
		ling = nlp.NewRemoteLinguistic(a.endpoint(m.LinguisticEndpoint), a.logger)
	}
	if m.NEREndpoint != "" {
		ner = nlp.NewRemoteNER(a.endpoint(m.NEREndpoint), a.logger)
	}
	switch {
	case m.ClassifierEndpoint != "":
		cls = nlp.NewRemoteClassifier(a.endpoint(m.ClassifierEndpoint), a.logger)
	case m.OpenAIAPIKey != "":
		cls = openai.NewClient(openai.Config{
			APIKey:      m.OpenAIAPIKey,
			BaseURL:     m.OpenAIBaseURL,
			Model:       m.OpenAIModel,
			Temperature: m.OpenAITemperature,
			Timeout:     m.Timeout,
		}, a.logger)
	}
	a.logger.Info("app.metadata.collaborators",
		"linguistic", ling != nil, "ner", ner != nil, "classifier", cls != nil)

	var ext metadata.PageExtractor = metadata.NewExtractor(ling, ner, cls, a.logger)
	if a.Config.Cache.RedisAddr == "" {
		return ext
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Cache.RedisAddr,
		Password: a.Config.Cache.RedisPassword,
		DB:       a.Config.Cache.RedisDB,
	})
	a.closers = append(a.closers, rdb.Close)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("app.cache.unreachable", "addr", a.Config.Cache.RedisAddr, "error", err)
	}
	return metadata.NewCachedExtractor(ext, rdb,
		metadata.WithCachePrefix(a.Config.Cache.Prefix),
		metadata.WithCacheTTL(a.Config.Cache.TTL),
		metadata.WithCacheLogger(a.logger),
	)
}
