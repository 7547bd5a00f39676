package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: "file:" + filepath.Join(t.TempDir(), "runs.db")}, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	// idempotent
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() second call failed: %v", err)
	}
	return db
}

func TestCreateRunTableSQL(t *testing.T) {
	tests := []struct {
		dialect  string
		timeType string
	}{
		{dialect.SQLite, "started_at DATETIME NOT NULL"},
		{dialect.Postgres, "started_at timestamp with time zone NOT NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			q := createRunTableSQL(tt.dialect)
			if !strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS extract_run (") {
				t.Errorf("ddl = %q, want CREATE TABLE IF NOT EXISTS extract_run", q)
			}
			if !strings.Contains(q, tt.timeType) {
				t.Errorf("ddl missing %q:\n%s", tt.timeType, q)
			}
		})
	}
}

func TestRunRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.HealthCheck(ctx, 0); err != nil {
		t.Fatalf("HealthCheck() failed: %v", err)
	}
	repo := NewRunRepository(db, nil)

	run, err := repo.Start(ctx, "/in/letter.pdf", "abc123")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	got, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status != "RUNNING" || got.SourcePath != "/in/letter.pdf" || got.FinishedAt != nil {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := repo.FindSucceededByHash(ctx, "abc123"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FindSucceededByHash() before success err = %v, want ErrNotFound", err)
	}

	if err := repo.FinishSuccess(ctx, run.ID, 3, 1, "/out/x_output.json"); err != nil {
		t.Fatalf("FinishSuccess() failed: %v", err)
	}
	found, err := repo.FindSucceededByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("FindSucceededByHash() failed: %v", err)
	}
	if found.ID != run.ID || found.Pages != 3 || found.Tables != 1 || found.FinishedAt == nil {
		t.Errorf("FindSucceededByHash() = %+v", found)
	}
}

func TestRunRepository_FinishFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)

	run, err := repo.Start(ctx, "/in/broken.pdf", "def")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := repo.FinishFailure(ctx, run.ID, "open document: not a PDF"); err != nil {
		t.Fatalf("FinishFailure() failed: %v", err)
	}
	got, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status != "FAILED" || got.ErrorMessage != "open document: not a PDF" {
		t.Errorf("Get() = %+v", got)
	}

	if err := repo.FinishFailure(ctx, uuid.New(), "x"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FinishFailure(unknown) err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, uuid.New()); !IsNotFound(err) {
		t.Errorf("Get(unknown) err = %v, want not found", err)
	}
}

func TestArtifactStore_WriteRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	store := NewArtifactStore(dir, nil)
	id := uuid.New()

	doc := entity.Document{Pages: []entity.Page{{
		Number: 1,
		Text:   "Delay w.r.t. Baseline & Update § 30.06.15",
		Tables: []entity.Table{{
			Columns: []string{"Remarks"},
			Rows:    []entity.Row{{{Column: "Remarks", Value: "<none>"}}},
		}},
	}}}
	path, err := store.Write(id, doc.Output())
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if filepath.Base(path) != id.String()+"_output.json" {
		t.Errorf("path = %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	for _, want := range []string{"& Update §", `"Remarks": "<none>"`, "\n  \"extracted_text\""} {
		if !strings.Contains(s, want) {
			t.Errorf("artifact missing %q:\n%s", want, s)
		}
	}

	back, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(back.OCRContent) != 1 || len(back.OCRContent[0].Tables) != 1 {
		t.Errorf("Read() = %+v", back)
	}
	if _, err := store.Read(filepath.Join(dir, "missing.json")); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Read(missing) err = %v, want ErrNotFound", err)
	}
}
