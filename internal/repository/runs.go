package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-extractor/constants"
	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/entity"
)

// Fixed-width UTC timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	Update(ctx context.Context, run *entity.Run) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	List(ctx context.Context, limit int) ([]*entity.Run, error)
}

type runRepository struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepository{db: db, log: log}
}

// Create inserts run and its records. A zero ID or CreatedAt is filled in.
func (r *runRepository) Create(ctx context.Context, run *entity.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.rebind(`
			INSERT INTO extraction_run
				(id, source, mode, status, error_message, report_count, captured, expected, overall_percentage, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			run.ID.String(), run.Source, run.Mode, string(run.Status), run.ErrorMessage,
			run.Summary.Reports, run.Summary.Captured, run.Summary.Expected, run.Summary.Percentage,
			run.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}
		return r.insertRecords(ctx, tx, run)
	})
	if err != nil {
		r.log.Error("extraction_run create failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("%w: create run: %v", common.ErrDatabase, err)
	}
	r.log.Info("extraction_run created", "run_id", run.ID, "status", run.Status, "reports", len(run.Records))
	return nil
}

// Update replaces status, summary and records of an existing run.
func (r *runRepository) Update(ctx context.Context, run *entity.Run) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.db.rebind(`
			UPDATE extraction_run
			SET status = ?, error_message = ?, report_count = ?, captured = ?, expected = ?, overall_percentage = ?
			WHERE id = ?`),
			string(run.Status), run.ErrorMessage,
			run.Summary.Reports, run.Summary.Captured, run.Summary.Expected, run.Summary.Percentage,
			run.ID.String(),
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return common.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM extraction_record WHERE run_id = ?`), run.ID.String()); err != nil {
			return err
		}
		return r.insertRecords(ctx, tx, run)
	})
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("run %s: %w", run.ID, common.ErrNotFound)
	}
	if err != nil {
		r.log.Error("extraction_run update failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("%w: update run: %v", common.ErrDatabase, err)
	}
	r.log.Info("extraction_run updated", "run_id", run.ID, "status", run.Status)
	return nil
}

func (r *runRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(`
		SELECT id, source, mode, status, error_message, report_count, captured, expected, overall_percentage, created_at
		FROM extraction_run WHERE id = ?`), id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get run: %v", common.ErrDatabase, err)
	}

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`
		SELECT payload FROM extraction_record WHERE run_id = ? ORDER BY position`), id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: get records: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	run.Records = []entity.ExtractionRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", common.ErrDatabase, err)
		}
		var rec entity.ExtractionRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("%w: decode record: %v", common.ErrInternal, err)
		}
		run.Records = append(run.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: get records: %v", common.ErrDatabase, err)
	}
	return run, nil
}

// List returns the newest runs first, without records.
func (r *runRepository) List(ctx context.Context, limit int) ([]*entity.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`
		SELECT id, source, mode, status, error_message, report_count, captured, expected, overall_percentage, created_at
		FROM extraction_run ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*entity.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", common.ErrDatabase, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	return runs, nil
}

func (r *runRepository) insertRecords(ctx context.Context, tx *sql.Tx, run *entity.Run) error {
	stmt := r.db.rebind(`
		INSERT INTO extraction_record (run_id, position, report_id, percentage, payload)
		VALUES (?, ?, ?, ?, ?)`)
	for i, rec := range run.Records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ReportID, err)
		}
		var pct sql.NullFloat64
		if rec.Accuracy != nil {
			pct = sql.NullFloat64{Float64: rec.Accuracy.Percentage, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, stmt, run.ID.String(), i, rec.ReportID, pct, string(payload)); err != nil {
			return err
		}
	}
	return nil
}

func (r *runRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.Run, error) {
	var (
		run       entity.Run
		id        string
		status    string
		createdAt string
	)
	err := s.Scan(&id, &run.Source, &run.Mode, &status, &run.ErrorMessage,
		&run.Summary.Reports, &run.Summary.Captured, &run.Summary.Expected, &run.Summary.Percentage,
		&createdAt)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	run.Status = constants.RunStatus(status)
	return &run, nil
}
