// Package export renders a processed document as an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

const (
	metadataSheet = "Metadata"
	textSheet     = "Text"
	maxCellRunes  = 32767 // Excel's per-cell character limit
)

// Service produces XLSX workbooks: one metadata sheet, one text sheet and one
// sheet per structured table.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// TableSheetName names the sheet of the n-th (1-based) table on a page.
func TableSheetName(page, n int) string {
	return fmt.Sprintf("P%d-T%d", page, n)
}

// ExportXLSX returns the workbook for doc as bytes.
func (s *Service) ExportXLSX(doc *entity.Document) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := renameDefault(f, metadataSheet); err != nil {
		return nil, err
	}
	if err := writeMetadata(f, doc); err != nil {
		return nil, fmt.Errorf("metadata sheet: %w", err)
	}
	if err := writeText(f, doc); err != nil {
		return nil, fmt.Errorf("text sheet: %w", err)
	}
	tables := 0
	for _, p := range doc.Pages {
		for i, t := range p.Tables {
			if err := writeTable(f, TableSheetName(p.Number, i+1), t); err != nil {
				return nil, fmt.Errorf("page %d table %d: %w", p.Number, i+1, err)
			}
			tables++
		}
	}
	idx, _ := f.GetSheetIndex(metadataSheet)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"source_path", doc.SourcePath,
		"pages", len(doc.Pages),
		"tables", tables,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteXLSX exports doc to path.
func (s *Service) WriteXLSX(doc *entity.Document, path string) error {
	b, err := s.ExportXLSX(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func renameDefault(f *excelize.File, name string) error {
	first := f.GetSheetName(0)
	if first == "" {
		_, err := f.NewSheet(name)
		return err
	}
	return f.SetSheetName(first, name)
}

func writeMetadata(f *excelize.File, doc *entity.Document) error {
	headers := []any{"Page", "Dates", "Parties", "Claimants", "Tribunals", "Relationships", "Clauses"}
	if err := f.SetSheetRow(metadataSheet, "A1", &headers); err != nil {
		return err
	}
	for i, p := range doc.Pages {
		m := p.Metadata
		rels := make([]string, len(m.Relationships))
		for j, r := range m.Relationships {
			rels[j] = fmt.Sprintf("%s %s %s", r.Claimant, r.Action, r.Object)
		}
		clauses := make([]string, len(m.Clauses))
		for j, c := range m.Clauses {
			clauses[j] = c.Type + ": " + c.Text
		}
		row := []any{
			p.Number,
			joinCell(m.Dates),
			joinCell(m.Parties),
			joinCell(m.Claimants),
			joinCell(m.Tribunals),
			joinCell(rels),
			joinCell(clauses),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(metadataSheet, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(metadataSheet, "A", "A", 8)
	_ = f.SetColWidth(metadataSheet, "B", "E", 28)
	_ = f.SetColWidth(metadataSheet, "F", "G", 60)
	return nil
}

func writeText(f *excelize.File, doc *entity.Document) error {
	if _, err := f.NewSheet(textSheet); err != nil {
		return err
	}
	headers := []any{"Page", "Extracted Text", "OCR Text"}
	if err := f.SetSheetRow(textSheet, "A1", &headers); err != nil {
		return err
	}
	for i, p := range doc.Pages {
		row := []any{p.Number, truncate(p.Text, maxCellRunes), truncate(p.OCRText, maxCellRunes)}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(textSheet, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(textSheet, "B", "C", 80)
	return nil
}

func writeTable(f *excelize.File, sheet string, t entity.Table) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for r, row := range t.Rows {
		values := make([]any, len(t.Columns))
		for c, col := range t.Columns {
			if v, ok := row.Get(col); ok && v != nil {
				values[c] = v
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func joinCell(items []string) string {
	return truncate(strings.Join(items, "; "), maxCellRunes)
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
