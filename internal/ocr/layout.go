package ocr

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/legal-ocr/constants"
)

// Region is one tagged layout region. Res holds the engine's raw payload:
// a list of line objects for text regions, an object with "html" for tables.
type Region struct {
	Type string          `json:"type"`
	Res  json.RawMessage `json:"res"`
}

// LayoutEngine segments a page image into tagged regions.
type LayoutEngine interface {
	Analyze(ctx context.Context, page PageImage) ([]Region, error)
}

// PageContent is what the layout pass keeps from one page.
type PageContent struct {
	Lines  []string
	Tables []string // raw HTML fragments, one per table region
}

// Text joins recognized lines with single spaces.
func (c PageContent) Text() string {
	return strings.Join(c.Lines, " ")
}

// CollectRegions walks regions in engine order, keeping text lines and table
// fragments. Malformed entries are logged and skipped.
func CollectRegions(regions []Region, page int, logger *slog.Logger) PageContent {
	if logger == nil {
		logger = slog.Default()
	}
	var out PageContent
	for i, r := range regions {
		switch r.Type {
		case constants.RegionText:
			var lines []map[string]json.RawMessage
			if err := json.Unmarshal(r.Res, &lines); err != nil {
				logger.Warn("ocr.region.bad_text_payload", "page", page, "region", i, "error", err)
				continue
			}
			for j, line := range lines {
				txt, ok := stringField(line, "text")
				if !ok {
					logger.Warn("ocr.region.missing_text", "page", page, "region", i, "line", j)
					continue
				}
				out.Lines = append(out.Lines, txt)
			}
		case constants.RegionTable:
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(r.Res, &obj); err != nil {
				logger.Warn("ocr.region.bad_table_payload", "page", page, "region", i, "error", err)
				continue
			}
			fragment, ok := stringField(obj, "html")
			if !ok {
				logger.Warn("ocr.region.missing_html", "page", page, "region", i)
				continue
			}
			out.Tables = append(out.Tables, fragment)
		default:
			logger.Debug("ocr.region.ignored", "page", page, "region", i, "type", r.Type)
		}
	}
	return out
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
