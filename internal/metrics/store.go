// Package metrics persists per-operation execution records to SQLite and
// summarizes them for the admin commands.
package metrics

import (
	"context"
	"database/sql"
	"time"

	"nutrition-coach/internal/shared"
)

// Store handles persistence of execution metrics.
type Store struct {
	db *sql.DB
}

// NewStore wraps an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordRun saves one operation execution.
func (s *Store) RecordRun(ctx context.Context, op string, latency time.Duration, success bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_runs (op, latency_ms, success, created_at) VALUES (?, ?, ?, ?)`,
		op, latency.Milliseconds(), success, time.Now().UTC(),
	)
	return err
}

// RecordMeta saves the token usage of one capability call. Calls without any
// token accounting are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_usage (agent_name, model, prompt_tokens, completion_tokens, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		meta.AgentName, meta.Usage.Model, meta.Usage.PromptTokens, meta.Usage.CompletionTokens,
		meta.Latency.Milliseconds(), time.Now().UTC(),
	)
	return err
}

// DailyUsage is one day's token totals.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	Calls           int
}

// DailyTokenUsage returns per-day token totals for the last N days, newest
// first.
func (s *Store) DailyTokenUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT DATE(created_at), SUM(prompt_tokens), SUM(completion_tokens), COUNT(*)
		 FROM llm_usage
		 WHERE created_at >= ?
		 GROUP BY DATE(created_at)
		 ORDER BY DATE(created_at) DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.Calls); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// OpSummary aggregates the runs of one operation over a window.
type OpSummary struct {
	Op           string
	Runs         int
	Failures     int
	AvgLatencyMS int64
}

// Summary returns per-operation totals for the last N days, busiest first.
func (s *Store) Summary(ctx context.Context, days int) ([]OpSummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT op,
		        COUNT(*),
		        COUNT(*) - SUM(success),
		        CAST(AVG(latency_ms) AS INTEGER)
		 FROM agent_runs
		 WHERE created_at >= ?
		 GROUP BY op
		 ORDER BY COUNT(*) DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []OpSummary
	for rows.Next() {
		var row OpSummary
		if err := rows.Scan(&row.Op, &row.Runs, &row.Failures, &row.AvgLatencyMS); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the given number of days and reports how
// many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM llm_usage WHERE created_at < ?`, threshold); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_runs WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
