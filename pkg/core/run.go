package core

import "time"

// RunStatus tracks the lifecycle of one apply run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StatementStatus tracks the outcome of one statement within a run.
type StatementStatus string

const (
	StatementStatusPending StatementStatus = "pending"
	StatementStatusRunning StatementStatus = "running"
	StatementStatusSuccess StatementStatus = "success"
	StatementStatusFailed  StatementStatus = "failed"
	StatementStatusSkipped StatementStatus = "skipped"
)

// Run records one invocation that submitted statements to an engine.
type Run struct {
	ID      string
	Target  string // target profile name
	Command string // "apply", "source create", ...
	Status  RunStatus

	StartedAt   time.Time
	CompletedAt *time.Time

	// Error holds the failure summary for failed runs.
	Error string
}

// StatementRun records one statement submitted (or skipped) during a run.
type StatementRun struct {
	ID        int64
	RunID     string
	Key       string // resource key the statement materializes
	Kind      string
	Statement string
	Status    StatementStatus

	StartedAt   *time.Time
	CompletedAt *time.Time
	DurationMS  int64

	Error string
}
