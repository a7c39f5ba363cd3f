// internal/process/adapter.go
package process

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run kinds.
const (
	KindReconcile = "reconcile"
	KindCleanup   = "cleanup"
)

// Run is the journal entry of one invocation.
type Run struct {
	ID         uuid.UUID
	Kind       string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
	// CleanupDone is set once the run has wiped every blob and media row.
	// A resumed run repeats cleanup until it is set.
	CleanupDone bool
}

func NewRun(kind string) *Run {
	return &Run{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    RunStatusPending,
		StartedAt: time.Now().UTC(),
	}
}

func MarkRunning(r *Run)   { r.Status = RunStatusRunning }
func MarkSucceeded(r *Run) { r.Status = RunStatusSucceeded; r.finish() }
func MarkFailed(r *Run, err error) {
	r.Status = RunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.finish()
}

func (r *Run) finish() {
	now := time.Now().UTC()
	r.FinishedAt = &now
}

// Resumable reports whether a later invocation may continue this run.
func (r *Run) Resumable() bool {
	return r.Kind == KindReconcile && (r.Status == RunStatusRunning || r.Status == RunStatusFailed)
}

// UnitStatus is the outcome recorded for a unit inside a run.
type UnitStatus string

const (
	UnitStatusImported UnitStatus = "imported"
	UnitStatusSkipped  UnitStatus = "skipped"
)

// UnitResult is written once a unit has been fully handled, so a resumed run
// can leave it alone.
type UnitResult struct {
	RunID       uuid.UUID
	UnitID      uuid.UUID
	Status      UnitStatus
	Photos      int
	Videos      int
	Bytes       int64
	CompletedAt time.Time
}
