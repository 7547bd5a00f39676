package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	cfg, err := common.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	cfg.Database.DSN = filepath.Join(dir, "runs.db")
	cfg.Output.Dir = filepath.Join(dir, "results")
	cfg.OCR.LayoutEndpoint = "http://127.0.0.1:1/layout"
	return cfg
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.ClassifierEndpoint = "http://127.0.0.1:1/classify"
	cfg.Cache.RedisAddr = "127.0.0.1:1"
	cfg.Cache.TTL = time.Minute

	app, err := NewApp(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	defer app.Close()

	if app.Processor == nil || app.Runs == nil || app.Artifacts == nil || app.Ingestor == nil || app.Export == nil {
		t.Fatalf("app has nil handles: %+v", app)
	}
	if _, err := app.Runs.FindSucceededByHash(context.Background(), "none"); err == nil {
		t.Error("FindSucceededByHash() on empty ledger succeeded")
	}
}

func TestNewApp_BadDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.DSN = "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"
	cfg.Database.DialTimeout = time.Second

	if _, err := NewApp(context.Background(), cfg, nil); err == nil {
		t.Fatal("NewApp() with unreachable postgres succeeded")
	}
}
