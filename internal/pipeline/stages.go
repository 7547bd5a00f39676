package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/legal-ocr/constants"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
	"github.com/joseph-ayodele/legal-ocr/internal/ocr"
)

func (p *Processor) textPass(ctx context.Context, path string) ([]entity.PageText, error) {
	p.deps.Progress.StageStarted(constants.StageText, 0)
	defer p.deps.Progress.StageFinished(constants.StageText)

	texts, err := p.deps.Text.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, t := range texts {
		p.deps.Progress.PageDone(constants.StageText, t.Page)
	}
	return texts, nil
}

func (p *Processor) ocrPass(ctx context.Context, log *slog.Logger, path string) ([]entity.PageOCR, error) {
	images, err := p.deps.Raster.Rasterize(ctx, path)
	if err != nil {
		return nil, err
	}
	p.deps.Progress.StageStarted(constants.StageOCR, len(images))
	defer p.deps.Progress.StageFinished(constants.StageOCR)

	return forEachPage(ctx, p.cfg.Workers, images, func(ctx context.Context, img ocr.PageImage) (entity.PageOCR, error) {
		page, err := p.ocrPage(ctx, log, img)
		if err == nil {
			p.deps.Progress.PageDone(constants.StageOCR, img.Number)
		}
		return page, err
	})
}

// ocrPage never fails for a single bad page; only cancellation of the run
// is returned.
func (p *Processor) ocrPage(ctx context.Context, log *slog.Logger, img ocr.PageImage) (entity.PageOCR, error) {
	out := entity.PageOCR{Page: img.Number, Tables: []entity.Table{}}

	pctx, cancel := p.pageContext(ctx)
	regions, err := p.deps.Layout.Analyze(pctx, img)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		log.Error("pipeline.ocr.page_failed", "page", img.Number, "err", err)
		return out, nil
	}

	content := ocr.CollectRegions(regions, img.Number, log)
	out.Text = content.Text()
	for i, fragment := range content.Tables {
		tables, err := p.deps.Tables.Normalize(fragment)
		if err != nil {
			log.Warn("pipeline.table.skipped", "page", img.Number, "fragment", i, "err", err)
			continue
		}
		out.Tables = append(out.Tables, tables...)
	}
	return out, nil
}

func (p *Processor) metadataPass(ctx context.Context, log *slog.Logger, texts []entity.PageText) ([]entity.PageMetadata, error) {
	p.deps.Progress.StageStarted(constants.StageMetadata, len(texts))
	defer p.deps.Progress.StageFinished(constants.StageMetadata)

	return forEachPage(ctx, p.cfg.Workers, texts, func(ctx context.Context, t entity.PageText) (entity.PageMetadata, error) {
		md, err := p.metadataPage(ctx, log, t)
		if err == nil {
			p.deps.Progress.PageDone(constants.StageMetadata, t.Page)
		}
		return entity.PageMetadata{Page: t.Page, Metadata: md}, err
	})
}

func (p *Processor) metadataPage(ctx context.Context, log *slog.Logger, t entity.PageText) (entity.Metadata, error) {
	// A page without a text layer has nothing for the models to read.
	if strings.TrimSpace(t.Text) == "" {
		return entity.NewMetadata(), nil
	}
	pctx, cancel := p.pageContext(ctx)
	defer cancel()

	md, err := p.deps.Metadata.Extract(pctx, t.Text)
	if err != nil {
		if ctx.Err() != nil {
			return entity.Metadata{}, ctx.Err()
		}
		log.Warn("pipeline.metadata.page_failed", "page", t.Page, "err", err)
		return entity.NewMetadata(), nil
	}
	if md.Degraded {
		log.Warn("pipeline.metadata.degraded", "page", t.Page)
	}
	return md, nil
}

func (p *Processor) pageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.PageTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.PageTimeout)
	}
	return context.WithCancel(ctx)
}

// forEachPage applies fn to every item with at most workers in flight and
// returns the results in input order.
func forEachPage[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
