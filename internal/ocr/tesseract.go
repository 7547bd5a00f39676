package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/legal-ocr/constants"
)

type TesseractConfig struct {
	Lang        string // default "eng"
	TessdataDir string
}

// Tesseract is a local LayoutEngine. It emits a single text region of
// recognized text lines and never detects tables.
type Tesseract struct {
	cfg    TesseractConfig
	logger *slog.Logger

	// gosseract clients are not safe for concurrent use
	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseract(cfg TesseractConfig, logger *slog.Logger) (*Tesseract, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	client := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		client.TessdataPrefix = cfg.TessdataDir
	}
	if err := client.SetLanguage(strings.Split(cfg.Lang, "+")...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tesseract language %q: %w", cfg.Lang, err)
	}
	return &Tesseract{cfg: cfg, logger: logger, client: client}, nil
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

type textLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"text_region"`
}

func (t *Tesseract) Analyze(ctx context.Context, page PageImage) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil, fmt.Errorf("tesseract: client closed")
	}

	if err := t.client.SetImageFromBytes(page.PNG); err != nil {
		return nil, fmt.Errorf("tesseract page %d: set image: %w", page.Number, err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract page %d: %w", page.Number, err)
	}

	lines := make([]textLine, 0, len(boxes))
	for _, b := range boxes {
		txt := strings.TrimSpace(b.Word)
		if txt == "" {
			continue
		}
		lines = append(lines, textLine{
			Text:       txt,
			Confidence: b.Confidence / 100,
			Box:        [4]int{b.Box.Min.X, b.Box.Min.Y, b.Box.Max.X, b.Box.Max.Y},
		})
	}
	res, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("tesseract page %d: encode lines: %w", page.Number, err)
	}
	t.logger.Debug("ocr.tesseract.ok", "page", page.Number, "lines", len(lines))
	return []Region{{Type: constants.RegionText, Res: res}}, nil
}
