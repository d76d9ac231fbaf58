package model

import (
	"errors"
	"testing"
	"time"
)

func TestRunRecord_Finish(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &RunRecord{ID: "r1", State: RunStateRunning}
	if err := r.Finish(RunStateFailed, 2, at); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if r.State != RunStateFailed || *r.ExitCode != 2 || !r.FinishedAt.Equal(at) {
		t.Errorf("record = %+v", r)
	}

	err := r.Finish(RunStateCompleted, 0, at)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}
	if ite.From != "FAILED" || ite.To != "COMPLETED" {
		t.Errorf("transition = %s -> %s", ite.From, ite.To)
	}
}
