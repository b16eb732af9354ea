package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// RecordSeed stores a finished seed run.
func (s *Store) RecordSeed(ctx context.Context, report *domain.IngestionReport) error {
	if report == nil {
		return domain.ErrInvalidInput
	}

	failures := report.Failures
	if failures == nil {
		failures = []domain.ThreadFailure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO seed_runs (subreddit, attempted, succeeded, chunks_written, failures, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.Subreddit, report.Attempted, report.Succeeded, report.ChunksWritten,
		string(failuresJSON), timeToUnix(report.StartedAt), timeToUnix(report.FinishedAt))
	if err != nil {
		return unavailable("recording seed run", err)
	}
	return nil
}

// RecentSeeds returns up to limit seed runs, newest first.
func (s *Store) RecentSeeds(ctx context.Context, limit int) ([]domain.IngestionReport, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT subreddit, attempted, succeeded, chunks_written, failures, started_at, finished_at
		FROM seed_runs
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, unavailable("querying seed runs", err)
	}
	defer rows.Close()

	var reports []domain.IngestionReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.IngestionReport
		var failuresJSON string
		var started, finished int64
		if err := rows.Scan(&r.Subreddit, &r.Attempted, &r.Succeeded, &r.ChunksWritten,
			&failuresJSON, &started, &finished); err != nil {
			return nil, unavailable("scanning seed run", err)
		}
		if err := json.Unmarshal([]byte(failuresJSON), &r.Failures); err != nil {
			return nil, fmt.Errorf("parsing failures: %w", err)
		}
		if len(r.Failures) == 0 {
			r.Failures = nil
		}
		r.StartedAt = unixToTime(started)
		r.FinishedAt = unixToTime(finished)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating seed runs", err)
	}

	return reports, nil
}
