package model

import "time"

// RunRecord is one dispatch recorded in the run ledger.
type RunRecord struct {
	ID         string        `json:"id"`
	Mode       ExecutionMode `json:"mode"`
	State      RunState      `json:"state"`
	DryRun     bool          `json:"dry_run"`
	ConfigPath string        `json:"config_path"`
	LogPath    string        `json:"log_path"`
	JobID      string        `json:"job_id,omitempty"`
	ExitCode   *int          `json:"exit_code,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Finish moves the record to a terminal state.
func (r *RunRecord) Finish(state RunState, exitCode int, at time.Time) error {
	if !r.State.CanTransitionTo(state) {
		return &InvalidTransitionError{Entity: "run", ID: r.ID, From: string(r.State), To: string(state)}
	}
	r.State = state
	r.ExitCode = &exitCode
	r.FinishedAt = &at
	return nil
}
