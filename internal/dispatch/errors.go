package dispatch

import (
	"fmt"

	"github.com/me/visiumflow/pkg/model"
)

// ExecutionError reports a non-zero exit from the engine or the submission
// command. LogPath is where its output was captured.
type ExecutionError struct {
	Mode     model.ExecutionMode
	ExitCode int
	LogPath  string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s run exited with code %d; see '%s'", model.ErrExecution, e.Mode, e.ExitCode, e.LogPath)
}

// Unwrap lets model.IsCode recognise execution failures.
func (e *ExecutionError) Unwrap() error {
	return &model.Error{Code: model.ErrExecution, Message: fmt.Sprintf("exit code %d", e.ExitCode)}
}
