package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
)

// runDBO maps to the runs table
type runDBO struct {
	ID          string
	Manifest    string
	Status      string
	StartedAt   int64
	FinishedAt  sql.NullInt64
	Total       int
	Automatable int
	Manual      int
	Succeeded   int
	Failed      int
	Bytes       int64
	Error       string
}

// Mapper: DBO to Domain Run
func (r *runDBO) ToDomain() *domain.Run {
	run := &domain.Run{
		ID:          r.ID,
		Manifest:    r.Manifest,
		Status:      domain.RunStatus(r.Status),
		StartedAt:   time.UnixMilli(r.StartedAt).UTC(),
		Total:       r.Total,
		Automatable: r.Automatable,
		Manual:      r.Manual,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Bytes:       r.Bytes,
		Error:       r.Error,
	}
	if r.FinishedAt.Valid {
		t := time.UnixMilli(r.FinishedAt.Int64).UTC()
		run.FinishedAt = &t
	}
	return run
}

// Mapper: Domain Run to DBO
func (r *runDBO) FromDomain(run *domain.Run) {
	r.ID = run.ID
	r.Manifest = run.Manifest
	r.Status = string(run.Status)
	r.StartedAt = run.StartedAt.UnixMilli()
	r.FinishedAt = sql.NullInt64{}
	if run.FinishedAt != nil {
		r.FinishedAt = sql.NullInt64{Int64: run.FinishedAt.UnixMilli(), Valid: true}
	}
	r.Total = run.Total
	r.Automatable = run.Automatable
	r.Manual = run.Manual
	r.Succeeded = run.Succeeded
	r.Failed = run.Failed
	r.Bytes = run.Bytes
	r.Error = run.Error
}

func (r *runDBO) fields() []any {
	return []any{
		&r.ID, &r.Manifest, &r.Status, &r.StartedAt, &r.FinishedAt,
		&r.Total, &r.Automatable, &r.Manual, &r.Succeeded, &r.Failed, &r.Bytes, &r.Error,
	}
}

var runColumns = []string{
	"id", "manifest", "status", "started_at", "finished_at",
	"total", "automatable", "manual", "succeeded", "failed", "bytes", "error",
}

var resultColumns = []string{
	"run_id", "position", "request_id", "name", "source", "outcome",
	"locator", "path", "size", "attempts", "check_name", "message",
}
