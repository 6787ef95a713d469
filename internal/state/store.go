// Package state records run history in a SQLite database.
//
// Every apply writes one row to runs and one row per compiled statement to
// run_statements. The history is local to the project (.sluice/state.db by
// default) and is never consulted for planning; deleting it loses nothing
// but the log.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// Store persists run history.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// New creates a state store. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the SQLite database, creating parent directories as needed.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	var dsn string
	if path == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping state database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new run UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Run operations ---

// BeginRun creates a new run in the running state.
func (s *Store) BeginRun(target, command string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Target:    target,
		Command:   command,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run",
		slog.String("id", run.ID),
		slog.String("target", target),
		slog.String("command", command))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, target, command, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Target, run.Command, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// FinishRun marks a run as completed or failed.
func (s *Store) FinishRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), now, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*core.Run, error) {
	run := &core.Run{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := sc.Scan(&run.ID, &run.Target, &run.Command, &status,
		&run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

const runColumns = `id, target, command, status, started_at, completed_at, error`

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestRun retrieves the most recent run for a target.
// Returns nil without error when the target has no runs yet.
func (s *Store) LatestRun(target string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE target = ? ORDER BY started_at DESC LIMIT 1`,
		target,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *Store) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// --- Statement operations ---

// StartStatement records a statement as running and returns its row ID.
func (s *Store) StartStatement(runID, key, kind, statement string) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO run_statements (run_id, resource_key, kind, statement, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, key, kind, statement, string(core.StatementStatusRunning), now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record statement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read statement id: %w", err)
	}
	return id, nil
}

// FinishStatement records the outcome of a running statement.
func (s *Store) FinishStatement(id int64, status core.StatementStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var started sql.NullTime
	err := s.db.QueryRow(`SELECT started_at FROM run_statements WHERE id = ?`, id).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("statement not found: %d", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read statement: %w", err)
	}

	now := time.Now().UTC()
	var durationMS int64
	if started.Valid {
		durationMS = now.Sub(started.Time).Milliseconds()
		if durationMS < 0 {
			durationMS = 0
		}
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	_, err = s.db.Exec(
		`UPDATE run_statements SET status = ?, completed_at = ?, duration_ms = ?, error = ? WHERE id = ?`,
		string(status), now, durationMS, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish statement: %w", err)
	}
	return nil
}

// SkipStatement records a statement that was never submitted, with the
// reason it was passed over.
func (s *Store) SkipStatement(runID, key, kind, statement, reason string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	_, err := s.db.Exec(
		`INSERT INTO run_statements (run_id, resource_key, kind, statement, status, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, key, kind, statement, string(core.StatementStatusSkipped), reasonPtr,
	)
	if err != nil {
		return fmt.Errorf("failed to record skipped statement: %w", err)
	}
	return nil
}

// ListStatements retrieves all statements of a run in submission order.
func (s *Store) ListStatements(runID string) ([]*core.StatementRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, resource_key, kind, statement, status, started_at, completed_at, duration_ms, error
		 FROM run_statements WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var statements []*core.StatementRun
	for rows.Next() {
		st := &core.StatementRun{}
		var status string
		var startedAt, completedAt sql.NullTime
		var errMsg sql.NullString

		if err := rows.Scan(&st.ID, &st.RunID, &st.Key, &st.Kind, &st.Statement,
			&status, &startedAt, &completedAt, &st.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}

		st.Status = core.StatementStatus(status)
		if startedAt.Valid {
			st.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			st.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			st.Error = errMsg.String
		}
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statements: %w", err)
	}
	return statements, nil
}

// RunSummary is a run with its statement outcome counts.
type RunSummary struct {
	core.Run
	Statements int
	Succeeded  int
	Failed     int
	Skipped    int
}

// ListRunSummaries retrieves recent runs with per-status statement counts.
func (s *Store) ListRunSummaries(limit int) ([]*RunSummary, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT r.id, r.target, r.command, r.status, r.started_at, r.completed_at, r.error,
		        COUNT(st.id),
		        COALESCE(SUM(CASE WHEN st.status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN st.status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN st.status = ? THEN 1 ELSE 0 END), 0)
		 FROM runs r
		 LEFT JOIN run_statements st ON st.run_id = r.id
		 GROUP BY r.id
		 ORDER BY r.started_at DESC
		 LIMIT ?`,
		string(core.StatementStatusSuccess),
		string(core.StatementStatusFailed),
		string(core.StatementStatusSkipped),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []*RunSummary
	for rows.Next() {
		sum := &RunSummary{}
		var status string
		var completedAt sql.NullTime
		var errMsg sql.NullString

		if err := rows.Scan(&sum.ID, &sum.Target, &sum.Command, &status,
			&sum.StartedAt, &completedAt, &errMsg,
			&sum.Statements, &sum.Succeeded, &sum.Failed, &sum.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}

		sum.Status = core.RunStatus(status)
		if completedAt.Valid {
			sum.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			sum.Error = errMsg.String
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run summaries: %w", err)
	}
	return summaries, nil
}
