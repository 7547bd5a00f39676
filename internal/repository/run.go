package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/constants"
	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

const runTable = "extract_run"

var runColumns = []string{
	"id", "source_path", "content_hash", "status", "pages", "tables",
	"artifact_path", "error_message", "started_at", "finished_at",
}

// RunRepository is the run ledger: one row per pipeline execution.
type RunRepository interface {
	Start(ctx context.Context, sourcePath, contentHash string) (*entity.Run, error)
	FinishSuccess(ctx context.Context, id uuid.UUID, pages, tables int, artifactPath string) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	FindSucceededByHash(ctx context.Context, contentHash string) (*entity.Run, error)
}

type runRepo struct {
	drv     *entsql.Driver
	dialect string
	log     *slog.Logger
	now     func() time.Time
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{drv: db.Driver, dialect: db.Dialect, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// createRunTableSQL returns the extract_run DDL for the given dialect.
func createRunTableSQL(dialectName string) string {
	timeType := "DATETIME"
	if dialectName == dialect.Postgres {
		timeType = "timestamp with time zone"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id varchar(36) NOT NULL PRIMARY KEY,
	source_path TEXT NOT NULL,
	content_hash varchar(64) NOT NULL,
	status varchar(16) NOT NULL,
	pages integer NOT NULL DEFAULT 0,
	tables integer NOT NULL DEFAULT 0,
	artifact_path TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	started_at %s NOT NULL,
	finished_at %s
)`, runTable, timeType, timeType)
}

// EnsureSchema creates the extract_run table when it does not exist.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if err := d.Driver.Exec(ctx, createRunTableSQL(d.Dialect), []any{}, nil); err != nil {
		return fmt.Errorf("%w: create %s: %w", common.ErrDatabase, runTable, err)
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_content_hash ON %s (content_hash, status)", runTable, runTable)
	if err := d.Driver.Exec(ctx, idx, []any{}, nil); err != nil {
		return fmt.Errorf("%w: index %s: %w", common.ErrDatabase, runTable, err)
	}
	return nil
}

func (r *runRepo) Start(ctx context.Context, sourcePath, contentHash string) (*entity.Run, error) {
	run := &entity.Run{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      string(constants.RunStatusRunning),
		StartedAt:   r.now(),
	}
	q, args := entsql.Dialect(r.dialect).Insert(runTable).
		Columns("id", "source_path", "content_hash", "status", "started_at").
		Values(run.ID.String(), run.SourcePath, run.ContentHash, run.Status, run.StartedAt).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_run start failed", "source_path", sourcePath, "err", err)
		return nil, fmt.Errorf("%w: start run: %w", common.ErrDatabase, err)
	}
	r.log.Info("extract_run started", "run_id", run.ID, "source_path", sourcePath)
	return run, nil
}

func (r *runRepo) FinishSuccess(ctx context.Context, id uuid.UUID, pages, tables int, artifactPath string) error {
	q, args := entsql.Dialect(r.dialect).Update(runTable).
		Set("status", string(constants.RunStatusSucceeded)).
		Set("pages", pages).
		Set("tables", tables).
		Set("artifact_path", artifactPath).
		Set("finished_at", r.now()).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.exec(ctx, q, args, id); err != nil {
		r.log.Error("extract_run finish(SUCCEEDED) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Info("extract_run finished (SUCCEEDED)", "run_id", id, "pages", pages, "tables", tables)
	return nil
}

func (r *runRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	q, args := entsql.Dialect(r.dialect).Update(runTable).
		Set("status", string(constants.RunStatusFailed)).
		Set("error_message", message).
		Set("finished_at", r.now()).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.exec(ctx, q, args, id); err != nil {
		r.log.Error("extract_run finish(FAILED) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Warn("extract_run finished (FAILED)", "run_id", id, "error", message)
	return nil
}

func (r *runRepo) exec(ctx context.Context, q string, args []any, id uuid.UUID) error {
	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	q, args := entsql.Dialect(r.dialect).Select(runColumns...).
		From(entsql.Table(runTable)).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.queryOne(ctx, q, args)
}

func (r *runRepo) FindSucceededByHash(ctx context.Context, contentHash string) (*entity.Run, error) {
	q, args := entsql.Dialect(r.dialect).Select(runColumns...).
		From(entsql.Table(runTable)).
		Where(entsql.And(
			entsql.EQ("content_hash", contentHash),
			entsql.EQ("status", string(constants.RunStatusSucceeded)),
		)).
		OrderBy(entsql.Desc("finished_at")).
		Limit(1).
		Query()
	return r.queryOne(ctx, q, args)
}

func (r *runRepo) queryOne(ctx context.Context, q string, args []any) (*entity.Run, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
		return nil, common.ErrNotFound
	}
	var (
		run      entity.Run
		id       string
		finished sql.NullTime
	)
	if err := rows.Scan(&id, &run.SourcePath, &run.ContentHash, &run.Status, &run.Pages, &run.Tables,
		&run.ArtifactPath, &run.ErrorMessage, &run.StartedAt, &finished); err != nil {
		return nil, fmt.Errorf("%w: scan run: %w", common.ErrDatabase, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: run id %q: %w", common.ErrDatabase, id, err)
	}
	run.ID = parsed
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// IsNotFound reports whether err means the requested run does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
