package dispatch

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/me/visiumflow/pkg/model"
)

// Handle tracks one launched engine or submission process.
//
// In local mode Wait returns when the engine finishes. In cluster mode Wait
// covers only the short-lived submission; the master job keeps running under
// the scheduler and JobID identifies it.
type Handle struct {
	Mode    model.ExecutionMode
	PID     int
	LogPath string
	JobID   string

	cmd     *exec.Cmd
	closers []io.Closer
	onExit  func(h *Handle) error

	mu       sync.Mutex
	state    model.RunState
	exitCode int

	waitOnce sync.Once
	waitErr  error
}

func newHandle(mode model.ExecutionMode, logPath string) *Handle {
	return &Handle{Mode: mode, LogPath: logPath, state: model.RunStateNotStarted, exitCode: -1}
}

// State returns the current run state.
func (h *Handle) State() model.RunState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ExitCode returns the process exit code, or -1 while it is still running.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// Detached reports whether the work outlives Wait.
func (h *Handle) Detached() bool {
	return h.Mode == model.ExecutionModeCluster
}

func (h *Handle) transition(next model.RunState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.CanTransitionTo(next) {
		return &model.InvalidTransitionError{Entity: "run", ID: h.LogPath, From: string(h.state), To: string(next)}
	}
	h.state = next
	return nil
}

func (h *Handle) start() error {
	if err := h.cmd.Start(); err != nil {
		h.closeAll()
		return fmt.Errorf("start %s: %w", h.cmd.Path, err)
	}
	h.PID = h.cmd.Process.Pid
	return h.transition(model.RunStateRunning)
}

// Wait blocks until the process exits. A non-zero exit is returned as an
// *ExecutionError. Calling Wait again returns the same result.
func (h *Handle) Wait() error {
	h.waitOnce.Do(func() {
		h.waitErr = h.wait()
	})
	return h.waitErr
}

func (h *Handle) wait() error {
	runErr := h.cmd.Wait()
	h.closeAll()

	code := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			h.finish(model.RunStateFailed, -1)
			return fmt.Errorf("wait for %s: %w", h.cmd.Path, runErr)
		}
		code = exitErr.ExitCode()
	}
	if code == 0 && h.onExit != nil {
		if err := h.onExit(h); err != nil {
			h.finish(model.RunStateFailed, code)
			return err
		}
	}
	if code != 0 {
		h.finish(model.RunStateFailed, code)
		return &ExecutionError{Mode: h.Mode, ExitCode: code, LogPath: h.LogPath}
	}
	h.finish(model.RunStateCompleted, code)
	return nil
}

func (h *Handle) finish(state model.RunState, code int) {
	h.mu.Lock()
	h.exitCode = code
	h.mu.Unlock()
	// RUNNING always reaches a terminal state, so the transition cannot fail.
	_ = h.transition(state)
}

func (h *Handle) closeAll() {
	for _, c := range h.closers {
		c.Close()
	}
	h.closers = nil
}
