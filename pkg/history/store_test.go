package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrate tests schema creation statements
func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS update_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS update_outcomes").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	assert.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordRun tests the transactional run+outcomes insert
func TestRecordRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	run := Run{
		ID:              "run-1",
		StartedAt:       now.Add(-time.Second),
		FinishedAt:      now,
		UpdatesPrepared: 2,
		PluginsUpdated:  1,
	}
	outcomes := []Outcome{
		{PluginID: "com.example.git", OldVersion: "1.0.0", NewVersion: "2.0.0", Kind: OutcomeApplied},
		{PluginID: "com.example.markdown", NewVersion: "3.0.0", Kind: OutcomeRejected, Detail: "plugin is not installed"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO update_runs").
		WithArgs(run.ID, run.StartedAt, run.FinishedAt, 2, 1, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO update_outcomes").
		WithArgs(run.ID, "com.example.git", "1.0.0", "2.0.0", "applied", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO update_outcomes").
		WithArgs(run.ID, "com.example.markdown", "", "3.0.0", "rejected", "plugin is not installed").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	assert.NoError(t, store.RecordRun(context.Background(), run, outcomes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecordRun_RollsBackOnFailure tests rollback when an outcome insert fails
func TestRecordRun_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO update_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO update_outcomes").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	store := NewStore(db)
	err = store.RecordRun(context.Background(), Run{ID: "run-1"}, []Outcome{{PluginID: "a"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestListRuns tests reading back run summaries
func TestListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "started_at", "finished_at", "updates_prepared", "plugins_updated", "error"}).
		AddRow("run-2", now, now, 1, 1, "").
		AddRow("run-1", now.Add(-time.Hour), now.Add(-time.Hour), 3, 0, "staging manifest corrupt")

	mock.ExpectQuery("SELECT id, started_at, finished_at").
		WithArgs(20).
		WillReturnRows(rows)

	store := NewStore(db)
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "staging manifest corrupt", runs[1].Error)
}

// TestListOutcomes tests reading back per-candidate outcomes
func TestListOutcomes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"run_id", "plugin_id", "old_version", "new_version", "outcome", "detail"}).
		AddRow("run-1", "com.example.git", "1.0.0", "2.0.0", "applied", "")

	mock.ExpectQuery("SELECT run_id, plugin_id").
		WithArgs("run-1").
		WillReturnRows(rows)

	store := NewStore(db)
	outcomes, err := store.ListOutcomes(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeApplied, outcomes[0].Kind)
}
