package process

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewRunStartsPending(t *testing.T) {
	run := NewRun(KindReconcile)

	if run.Kind != KindReconcile || run.ID == uuid.Nil {
		t.Fatalf("unexpected run identity: %+v", run)
	}
	if run.Status != RunStatusPending {
		t.Fatalf("run status not pending: %v", run.Status)
	}
	if run.StartedAt.IsZero() || run.FinishedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", run)
	}
}

func TestMarkFailedSetsStatusAndError(t *testing.T) {
	run := NewRun(KindReconcile)
	MarkRunning(run)
	MarkFailed(run, errors.New("boom"))

	if run.Status != RunStatusFailed {
		t.Fatalf("run status not failed: %v", run.Status)
	}
	if run.Error == "" {
		t.Fatal("run error not recorded")
	}
	if run.FinishedAt == nil {
		t.Fatal("finish time not recorded")
	}
}

func TestMarkFailedDoesNotOverwriteErrorWhenNil(t *testing.T) {
	run := NewRun(KindReconcile)
	MarkFailed(run, nil)

	if run.Status != RunStatusFailed {
		t.Fatalf("run status not failed: %v", run.Status)
	}
	if run.Error != "" {
		t.Fatalf("expected empty error string, got %q", run.Error)
	}
}

func TestResumable(t *testing.T) {
	tests := []struct {
		kind   string
		status RunStatus
		want   bool
	}{
		{KindReconcile, RunStatusRunning, true},
		{KindReconcile, RunStatusFailed, true},
		{KindReconcile, RunStatusSucceeded, false},
		{KindReconcile, RunStatusPending, false},
		{KindCleanup, RunStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+string(tt.status), func(t *testing.T) {
			run := &Run{Kind: tt.kind, Status: tt.status}
			if got := run.Resumable(); got != tt.want {
				t.Fatalf("Resumable() = %v, want %v", got, tt.want)
			}
		})
	}
}
