package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcome classifies what happened to one candidate during a run.
type OutcomeKind string

const (
	OutcomeApplied  OutcomeKind = "applied"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

// Run summarizes one update run
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	UpdatesPrepared int
	PluginsUpdated  int
	Error           string
}

// Outcome records what happened to a single candidate in a run
type Outcome struct {
	RunID      string
	PluginID   string
	OldVersion string
	NewVersion string
	Kind       OutcomeKind
	Detail     string
}

// Store persists update run history in a local SQLite database
type Store struct {
	db *sql.DB
}

// NewStore creates a history store over db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the history tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS update_runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			updates_prepared INTEGER NOT NULL,
			plugins_updated INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS update_outcomes (
			run_id TEXT NOT NULL,
			plugin_id TEXT NOT NULL,
			old_version TEXT NOT NULL DEFAULT '',
			new_version TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, plugin_id)
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate history schema: %w", err)
		}
	}

	return nil
}

// RecordRun writes a run and its per-candidate outcomes in one transaction
func (s *Store) RecordRun(ctx context.Context, run Run, outcomes []Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO update_runs (id, started_at, finished_at, updates_prepared, plugins_updated, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, run.UpdatesPrepared, run.PluginsUpdated, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, o := range outcomes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO update_outcomes (run_id, plugin_id, old_version, new_version, outcome, detail)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, o.PluginID, o.OldVersion, o.NewVersion, string(o.Kind), o.Detail,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome for %s: %w", o.PluginID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, updates_prepared, plugins_updated, error
		FROM update_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt,
			&r.UpdatesPrepared, &r.PluginsUpdated, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// ListOutcomes returns all per-candidate outcomes of one run
func (s *Store) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, plugin_id, old_version, new_version, outcome, detail
		FROM update_outcomes
		WHERE run_id = ?
		ORDER BY plugin_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var kind string
		if err := rows.Scan(&o.RunID, &o.PluginID, &o.OldVersion, &o.NewVersion, &kind, &o.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Kind = OutcomeKind(kind)
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
