package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
	"github.com/joseph-ayodele/legal-ocr/internal/ocr"
)

// Poppler extracts text by shelling out to pdftotext.
type Poppler struct {
	bin    string
	runner ocr.Runner
	logger *slog.Logger
}

// NewPoppler returns a Poppler extractor. bin defaults to "pdftotext".
func NewPoppler(bin string, runner ocr.Runner, logger *slog.Logger) *Poppler {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.NewExecRunner(logger)
	}
	if bin == "" {
		bin = "pdftotext"
	}
	return &Poppler{bin: bin, runner: runner, logger: logger}
}

func (p *Poppler) Extract(ctx context.Context, path string) ([]entity.PageText, error) {
	// pdftotext -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.bin, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext %s: %w: %s", common.ErrOpenDocument, path, err, strings.TrimSpace(string(errb)))
	}
	pages := SplitPages(string(out))
	res := make([]entity.PageText, len(pages))
	for i, t := range pages {
		res[i] = entity.PageText{Page: i + 1, Text: t}
	}
	p.logger.Debug("pdftext.poppler.ok", "path", path, "pages", len(res))
	return res, nil
}

// SplitPages splits pdftotext output on form feeds. pdftotext terminates every
// page with \f, so the empty segment after the last one is dropped.
func SplitPages(s string) []string {
	parts := strings.Split(s, "\f")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
