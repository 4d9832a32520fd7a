package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/datallboy/modfetch/internal/domain"
)

// CreateRun inserts a run without its results.
func (s *PersistentStore) CreateRun(ctx context.Context, run *domain.Run) error {
	var dbo runDBO
	dbo.FromDomain(run)

	query, args, err := s.qb.Insert("runs").
		Columns(runColumns...).
		Values(
			dbo.ID, dbo.Manifest, dbo.Status, dbo.StartedAt, dbo.FinishedAt,
			dbo.Total, dbo.Automatable, dbo.Manual, dbo.Succeeded, dbo.Failed, dbo.Bytes, dbo.Error,
		).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun updates the run's counters and status and replaces its results.
func (s *PersistentStore) FinishRun(ctx context.Context, run *domain.Run) error {
	var dbo runDBO
	dbo.FromDomain(run)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	update, args, err := s.qb.Update("runs").
		Set("status", dbo.Status).
		Set("finished_at", dbo.FinishedAt).
		Set("total", dbo.Total).
		Set("automatable", dbo.Automatable).
		Set("manual", dbo.Manual).
		Set("succeeded", dbo.Succeeded).
		Set("failed", dbo.Failed).
		Set("bytes", dbo.Bytes).
		Set("error", dbo.Error).
		Where(squirrel.Eq{"id": dbo.ID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, update, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	del, args, err := s.qb.Delete("run_results").Where(squirrel.Eq{"run_id": dbo.ID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return err
	}

	if len(run.Results) > 0 {
		insert := s.qb.Insert("run_results").Columns(resultColumns...)
		for i, rr := range run.Results {
			insert = insert.Values(
				dbo.ID, i, rr.RequestID, rr.Name, string(rr.Source), string(rr.Outcome),
				rr.Locator, rr.Path, rr.Size, rr.Attempts, rr.Check, rr.Message,
			)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun returns a run with its results in request order.
func (s *PersistentStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	query, args, err := s.qb.Select(runColumns...).
		From("runs").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var dbo runDBO
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(dbo.fields()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	run := dbo.ToDomain()

	query, args, err = s.qb.Select(resultColumns[2:]...).
		From("run_results").
		Where(squirrel.Eq{"run_id": id}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rr domain.RunResult
		err := rows.Scan(
			&rr.RequestID, &rr.Name, &rr.Source, &rr.Outcome,
			&rr.Locator, &rr.Path, &rr.Size, &rr.Attempts, &rr.Check, &rr.Message,
		)
		if err != nil {
			return nil, err
		}
		run.Results = append(run.Results, rr)
	}

	return run, rows.Err()
}

// ListRuns returns the most recent runs first, without results.
func (s *PersistentStore) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	q := s.qb.Select(runColumns...).From("runs").OrderBy("started_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		var dbo runDBO
		if err := rows.Scan(dbo.fields()...); err != nil {
			return nil, err
		}
		runs = append(runs, dbo.ToDomain())
	}

	return runs, rows.Err()
}
