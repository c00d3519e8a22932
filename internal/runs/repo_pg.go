package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. The step list is stored as a JSONB
// column so a run and its step states update atomically in one row.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new run.
func (r *PGRepo) Create(ctx context.Context, run AnalysisRun) error {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	const query = `
INSERT INTO analysis_runs (id, document_id, document_text, primary_framework, secondary_framework, target_language, steps, created_at, updated_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.DB.ExecContext(ctx, query,
		run.ID, nullable(run.DocumentID), run.DocumentText, run.PrimaryFramework,
		nullable(run.SecondaryFramework), nullable(run.TargetLanguage), steps,
		run.CreatedAt, run.UpdatedAt, run.CompletedAt)
	return err
}

// GetByID returns a run by its ID.
func (r *PGRepo) GetByID(ctx context.Context, runID string) (AnalysisRun, error) {
	const query = `
SELECT id, document_id, document_text, primary_framework, secondary_framework, target_language, steps, created_at, updated_at, completed_at
FROM analysis_runs WHERE id = $1`
	return r.scanRun(r.DB.QueryRowContext(ctx, query, runID))
}

// Update replaces the run's mutable columns.
func (r *PGRepo) Update(ctx context.Context, run AnalysisRun) error {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	const query = `
UPDATE analysis_runs SET steps = $2, updated_at = $3, completed_at = $4 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, run.ID, steps, run.UpdatedAt, run.CompletedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns runs newest first with limit/offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, document_id, document_text, primary_framework, secondary_framework, target_language, steps, created_at, updated_at, completed_at
FROM analysis_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []AnalysisRun{}
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanRun(row rowScanner) (AnalysisRun, error) {
	var run AnalysisRun
	var documentID, secondary, targetLang sql.NullString
	var steps []byte
	err := row.Scan(&run.ID, &documentID, &run.DocumentText, &run.PrimaryFramework,
		&secondary, &targetLang, &steps, &run.CreatedAt, &run.UpdatedAt, &run.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisRun{}, ErrNotFound
	}
	if err != nil {
		return AnalysisRun{}, err
	}
	run.DocumentID = documentID.String
	run.SecondaryFramework = secondary.String
	run.TargetLanguage = targetLang.String
	if err := json.Unmarshal(steps, &run.Steps); err != nil {
		return AnalysisRun{}, fmt.Errorf("unmarshal steps: %w", err)
	}
	return run, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
