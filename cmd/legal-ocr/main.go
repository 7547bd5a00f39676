package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/core"
	"github.com/joseph-ayodele/legal-ocr/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		in    = flag.String("in", "", "PDF file to process")
		dir   = flag.String("dir", "", "directory of PDFs to process")
		out   = flag.String("out", "", "artifact output directory (overrides OUTPUT_DIR)")
		xlsx  = flag.Bool("xlsx", false, "also write an XLSX workbook next to each artifact")
		force = flag.Bool("force", false, "process files even if an identical file already succeeded")
	)
	flag.Parse()

	if (*in == "") == (*dir == "") {
		printError("Error: exactly one of --in or --dir is required\n")
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *out != "" {
		cfg.Output.Dir = *out
	}
	if *xlsx {
		cfg.Output.WriteXLSX = true
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(os.Stderr, cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := core.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var items []ingest.IngestionResult
	if *in != "" {
		r, err := app.Ingestor.IngestPath(ctx, *in)
		if err != nil {
			logger.Error("ingest failed", "path", *in, "error", err)
			os.Exit(1)
		}
		items = append(items, r)
	} else {
		results, stats, err := app.Ingestor.IngestDirectory(ctx, *dir, true)
		if err != nil {
			logger.Error("directory ingest failed", "dir", *dir, "error", err)
			os.Exit(1)
		}
		logger.Info("directory scanned", "matched", stats.Matched, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
		items = results
	}

	failed := 0
	for _, it := range items {
		if it.Err != "" {
			failed++
			continue
		}
		if it.Deduplicated && !*force {
			logger.Info("skipping already processed file", "path", it.SourcePath, "prior_run_id", it.PriorRunID)
			fmt.Println(it.ArtifactPath)
			continue
		}
		res, err := app.Processor.ProcessWithHash(ctx, it.SourcePath, it.HashHex)
		if err != nil {
			failed++
			logger.Error("processing failed", "path", it.SourcePath, "error", err, "fatal", common.IsFatal(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if cfg.Output.WriteXLSX {
			xpath := strings.TrimSuffix(res.ArtifactPath, filepath.Ext(res.ArtifactPath)) + ".xlsx"
			if err := app.Export.WriteXLSX(res.Document, xpath); err != nil {
				logger.Error("xlsx export failed", "path", xpath, "error", err)
			}
		}
		fmt.Println(res.ArtifactPath)
	}

	if failed > 0 {
		logger.Error("finished with failures", "failed", failed, "total", len(items))
		os.Exit(1)
	}
}
