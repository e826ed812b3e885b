package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fincopilot/fincopilot/internal/model"
)

// RecordIngestRun appends run to the ingest audit trail.
func (s *Store) RecordIngestRun(ctx context.Context, run model.IngestRun) error {
	rec := model.Record{
		"id":            run.ID,
		"source":        run.Source,
		"mode":          run.Mode,
		"rows_read":     run.RowsRead,
		"rows_inserted": run.RowsInserted,
		"rows_skipped":  run.RowsSkipped,
		"rows_replaced": run.RowsReplaced,
		"started_at":    formatTimestamp(run.StartedAt),
		"finished_at":   formatTimestamp(run.FinishedAt),
	}
	if run.Error != nil {
		rec["error"] = *run.Error
	}
	if _, _, err := s.InsertOne(ctx, KindIngestRun, rec); err != nil {
		return fmt.Errorf("recording ingest run %s: %w", run.ID, err)
	}
	return nil
}

// IngestRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) IngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	query := `SELECT id, source, mode, rows_read, rows_inserted, rows_skipped, rows_replaced,
		started_at, finished_at, error FROM ingest_runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var (
			r                 model.IngestRun
			started, finished nullTime
			errText           sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Mode, &r.RowsRead, &r.RowsInserted,
			&r.RowsSkipped, &r.RowsReplaced, &started, &finished, &errText); err != nil {
			return nil, fmt.Errorf("scanning ingest run: %w", err)
		}
		r.StartedAt = started.Time
		r.FinishedAt = finished.Time
		r.Error = nullStringPtr(errText)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing ingest runs: %w", err)
	}
	return runs, nil
}
