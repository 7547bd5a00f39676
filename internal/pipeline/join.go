package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

// join assembles pages 1..N keyed by page number, N being the highest page
// number any pass reported. A page missing from a pass gets empty content
// for that pass.
func join(path string, texts []entity.PageText, ocrPages []entity.PageOCR, metas []entity.PageMetadata, log *slog.Logger) *entity.Document {
	n := 0
	textBy := make(map[int]string, len(texts))
	for _, t := range texts {
		textBy[t.Page] = t.Text
		n = max(n, t.Page)
	}
	ocrBy := make(map[int]entity.PageOCR, len(ocrPages))
	for _, o := range ocrPages {
		ocrBy[o.Page] = o
		n = max(n, o.Page)
	}
	metaBy := make(map[int]entity.Metadata, len(metas))
	for _, m := range metas {
		metaBy[m.Page] = m.Metadata
		n = max(n, m.Page)
	}

	doc := &entity.Document{SourcePath: path, Pages: make([]entity.Page, 0, n)}
	for page := 1; page <= n; page++ {
		p := entity.Page{Number: page, Tables: []entity.Table{}, Metadata: entity.NewMetadata()}

		if t, ok := textBy[page]; ok {
			p.Text = t
		} else {
			log.Warn("pipeline.join.missing_page", "page", page, "pass", "text")
		}
		if o, ok := ocrBy[page]; ok {
			p.OCRText = o.Text
			if o.Tables != nil {
				p.Tables = o.Tables
			}
		} else {
			log.Warn("pipeline.join.missing_page", "page", page, "pass", "ocr")
		}
		if m, ok := metaBy[page]; ok {
			p.Metadata = m
		} else {
			log.Warn("pipeline.join.missing_page", "page", page, "pass", "metadata")
		}
		doc.Pages = append(doc.Pages, p)
	}
	return doc
}
