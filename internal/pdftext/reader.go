package pdftext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

// Reader extracts text in-process with github.com/ledongthuc/pdf.
type Reader struct {
	logger *slog.Logger
}

func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

func (r *Reader) Extract(ctx context.Context, path string) ([]entity.PageText, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrOpenDocument, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("pdftext.close_failed", "path", path, "error", err)
		}
	}()

	n := doc.NumPage()
	out := make([]entity.PageText, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(doc.Page(i))
		if err != nil {
			r.logger.Warn("pdftext.page_unreadable", "path", path, "page", i, "error", err)
			text = ""
		}
		out = append(out, entity.PageText{Page: i, Text: text})
	}
	r.logger.Debug("pdftext.ok", "path", path, "pages", n)
	return out, nil
}

// pageText decodes one page. The decoder panics on some malformed content
// streams, which is reported as an error for that page only.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decode page: %v", rec)
		}
	}()
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}
