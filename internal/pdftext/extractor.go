// Package pdftext reads the embedded text layer of a PDF, one entry per page.
package pdftext

import (
	"context"

	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

// Extractor returns the text layer of every page in page order. Pages without
// a readable text layer yield empty text; the page count is always preserved.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]entity.PageText, error)
}
