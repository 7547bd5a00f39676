package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
)

// PageImage is one rasterized PDF page encoded as PNG.
type PageImage struct {
	Number int
	PNG    []byte
}

type RasterConfig struct {
	Pdftoppm     string // binary name or absolute path; if empty -> "pdftoppm"
	DPI          int    // default 200
	MaxDimension int    // longest side in pixels; 0 = keep pdftoppm output
}

// Rasterizer renders every page of a PDF to a bitmap, independent of its text layer.
type Rasterizer struct {
	cfg    RasterConfig
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg RasterConfig, runner Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

var rePageFile = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize returns one image per page ordered by page number.
func (r *Rasterizer) Rasterize(ctx context.Context, path string) ([]PageImage, error) {
	tmpDir, err := os.MkdirTemp("", "legal-ocr-pp-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %w", common.ErrRasterize, err)
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("ocr.raster.cleanup_failed", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 200 -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", strconv.Itoa(r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %w: %s", common.ErrRasterize, err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	// prefix-1.png, prefix-2.png, ... (zero padded for longer documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	pages := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		sm := rePageFile.FindStringSubmatch(m)
		if sm == nil {
			continue
		}
		n, _ := strconv.Atoi(sm[1])
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", common.ErrRasterize, filepath.Base(m), err)
		}
		if r.cfg.MaxDimension > 0 {
			if b, err = downscale(b, r.cfg.MaxDimension); err != nil {
				return nil, fmt.Errorf("%w: page %d: %w", common.ErrRasterize, n, err)
			}
		}
		pages = append(pages, PageImage{Number: n, PNG: b})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no images", common.ErrRasterize)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	r.logger.Debug("ocr.raster.ok", "path", path, "pages", len(pages), "dpi", r.cfg.DPI)
	return pages, nil
}

// downscale shrinks a PNG so its longest side is at most maxDim pixels.
func downscale(b []byte, maxDim int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := max(w, h)
	if longest <= maxDim {
		return b, nil
	}
	nw := max(1, w*maxDim/longest)
	nh := max(1, h*maxDim/longest)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
