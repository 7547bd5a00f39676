package entity

// Document is the joined result of one pipeline run.
type Document struct {
	SourcePath string `json:"source_path"`
	Pages      []Page `json:"pages"`
}

// Page holds everything extracted for one 1-indexed PDF page.
type Page struct {
	Number   int      `json:"page"`
	Text     string   `json:"text"`
	OCRText  string   `json:"ocr_text"`
	Tables   []Table  `json:"tables"`
	Metadata Metadata `json:"metadata"`
}

// PageText is one page of the embedded text layer.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// PageOCR is one page of recognized text plus structured tables.
type PageOCR struct {
	Page   int     `json:"page"`
	Text   string  `json:"text"`
	Tables []Table `json:"tables"`
}

// PageMetadata is one page of fused legal metadata.
type PageMetadata struct {
	Page     int      `json:"page"`
	Metadata Metadata `json:"metadata"`
}

// Output is the persisted JSON artifact shape.
type Output struct {
	ExtractedText []PageText     `json:"extracted_text"`
	OCRContent    []PageOCR      `json:"ocr_content"`
	Metadata      []PageMetadata `json:"metadata"`
}

// Output projects the document onto the three per-pass arrays.
func (d *Document) Output() Output {
	out := Output{
		ExtractedText: make([]PageText, 0, len(d.Pages)),
		OCRContent:    make([]PageOCR, 0, len(d.Pages)),
		Metadata:      make([]PageMetadata, 0, len(d.Pages)),
	}
	for _, p := range d.Pages {
		tables := p.Tables
		if tables == nil {
			tables = []Table{}
		}
		out.ExtractedText = append(out.ExtractedText, PageText{Page: p.Number, Text: p.Text})
		out.OCRContent = append(out.OCRContent, PageOCR{Page: p.Number, Text: p.OCRText, Tables: tables})
		out.Metadata = append(out.Metadata, PageMetadata{Page: p.Number, Metadata: p.Metadata.Normalized()})
	}
	return out
}

// TableCount returns the number of structured tables across all pages.
func (d *Document) TableCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Tables)
	}
	return n
}
