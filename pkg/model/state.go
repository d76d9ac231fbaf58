package model

import "fmt"

// RunState represents the lifecycle state of a dispatched engine run.
type RunState string

const (
	RunStateNotStarted RunState = "NOT_STARTED"
	RunStateRunning    RunState = "RUNNING"
	RunStateCompleted  RunState = "COMPLETED"
	RunStateFailed     RunState = "FAILED"
	RunStatePlanned    RunState = "PLANNED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStatePlanned:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for runs.
// PLANNED is reached only from NOT_STARTED and never leads to RUNNING.
var ValidRunTransitions = map[RunState][]RunState{
	RunStateNotStarted: {RunStateRunning, RunStatePlanned},
	RunStateRunning:    {RunStateCompleted, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ExecutionMode selects how the engine is launched.
type ExecutionMode string

const (
	ExecutionModeLocal   ExecutionMode = "local"
	ExecutionModeCluster ExecutionMode = "cluster"
)

// ParseExecutionMode validates a user-supplied mode string.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(s) {
	case ExecutionModeLocal, ExecutionModeCluster:
		return ExecutionMode(s), nil
	}
	return "", NewValidationError(fmt.Sprintf("unsupported execution mode %q (want local or cluster)", s))
}
