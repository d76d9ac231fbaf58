// Package dispatch launches the workflow engine, either directly or as a
// master job submitted to the batch scheduler.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/me/visiumflow/internal/cmdline"
	"github.com/me/visiumflow/internal/config"
	"github.com/me/visiumflow/internal/workspace"
	"github.com/me/visiumflow/pkg/model"
)

// Request describes one dispatch against a prepared output directory.
type Request struct {
	Layout           workspace.Layout
	Mode             model.ExecutionMode
	Threads          int
	JobName          string
	BindPaths        model.BindPaths
	SingularityCache string
}

// NewRequest builds a Request from a finalized run configuration.
func NewRequest(layout workspace.Layout, cfg *model.RunConfig) Request {
	return Request{
		Layout:           layout,
		Mode:             cfg.Options.Mode,
		Threads:          cfg.Options.Threads,
		JobName:          cfg.Options.JobName,
		BindPaths:        cfg.BindPaths,
		SingularityCache: cfg.Options.SingularityCache,
	}
}

// Plan is the result of a dry run.
type Plan struct {
	Text    string
	LogPath string
	State   model.RunState
}

// Dispatcher starts engine processes.
type Dispatcher struct {
	tools   config.Tools
	cluster config.Cluster
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Dispatcher.
func New(tools config.Tools, cluster config.Cluster, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tools:   tools,
		cluster: cluster,
		logger:  logger.With("component", "dispatch"),
		now:     time.Now,
	}
}

// CheckDependencies verifies that the programs a dispatch will need are on
// $PATH. The engine is always needed; the container runtime only for real
// runs; the submission command only for real cluster runs.
func (d *Dispatcher) CheckDependencies(mode model.ExecutionMode, dryRun bool) error {
	required := []string{d.tools.Engine}
	if !dryRun {
		required = append(required, d.tools.Container)
		if mode == model.ExecutionModeCluster {
			required = append(required, d.tools.Submit)
		}
	}
	for _, tool := range required {
		path, err := exec.LookPath(tool)
		if err != nil {
			return model.NewDependencyError(tool, err)
		}
		d.logger.Debug("found tool", "name", tool, "path", path)
	}
	return nil
}

// Launch starts the run and returns once the process is running.
func (d *Dispatcher) Launch(ctx context.Context, req Request) (*Handle, error) {
	if err := os.MkdirAll(req.Layout.LogDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if err := workspace.RotateLog(req.Layout.EngineLog()); err != nil {
		return nil, fmt.Errorf("rotate %s: %w", req.Layout.EngineLog(), err)
	}

	switch req.Mode {
	case model.ExecutionModeLocal:
		return d.launchLocal(ctx, req)
	case model.ExecutionModeCluster:
		return d.submit(ctx, req)
	default:
		return nil, model.NewValidationError(fmt.Sprintf("unsupported mode %q", req.Mode))
	}
}

// Dispatch launches the run and waits for the launched process.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Handle, error) {
	h, err := d.Launch(ctx, req)
	if err != nil {
		return nil, err
	}
	return h, h.Wait()
}

func (d *Dispatcher) launchLocal(ctx context.Context, req Request) (*Handle, error) {
	b := d.runCommand(req).Int("--cores", req.Threads)

	logFile, err := os.Create(req.Layout.EngineLog())
	if err != nil {
		return nil, fmt.Errorf("open engine log: %w", err)
	}
	cmd := exec.CommandContext(ctx, b.Name(), b.Args()...)
	cmd.Dir = req.Layout.Root
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	h := newHandle(model.ExecutionModeLocal, req.Layout.EngineLog())
	h.cmd = cmd
	h.closers = append(h.closers, logFile)
	if err := h.start(); err != nil {
		return nil, err
	}
	d.logger.Info("engine started", "mode", h.Mode, "pid", h.PID, "log", h.LogPath)
	d.logger.Debug("engine command", "cmd", b.Shell())
	return h, nil
}

func (d *Dispatcher) submit(ctx context.Context, req Request) (*Handle, error) {
	script, err := d.writeMasterScript(req)
	if err != nil {
		return nil, err
	}

	b := cmdline.New(d.tools.Submit, "--parsable").
		Flag("--job-name", req.JobName).
		Flag("--output", req.Layout.EngineLog()).
		Flag("--mem", d.cluster.Memory).
		Flag("--time", d.cluster.Time).
		Int("--cpus-per-task", d.cluster.CPUs).
		Opt("--partition", model.OptionalString(d.cluster.Partition)).
		Arg(script)

	submitLog, err := os.Create(req.Layout.SubmitLog())
	if err != nil {
		return nil, fmt.Errorf("open submission log: %w", err)
	}
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, b.Name(), b.Args()...)
	cmd.Dir = req.Layout.Root
	cmd.Stdout = io.MultiWriter(&stdout, submitLog)
	cmd.Stderr = submitLog

	h := newHandle(model.ExecutionModeCluster, req.Layout.SubmitLog())
	h.cmd = cmd
	h.closers = append(h.closers, submitLog)
	h.onExit = func(h *Handle) error {
		id, err := parseJobID(stdout.String())
		if err != nil {
			return fmt.Errorf("%s: %w (see '%s')", d.tools.Submit, err, h.LogPath)
		}
		h.JobID = id
		if err := os.WriteFile(req.Layout.JobIDFile(), []byte(id+"\n"), 0o644); err != nil {
			return fmt.Errorf("record job id: %w", err)
		}
		d.logger.Info("master job submitted", "job_id", id, "log", req.Layout.EngineLog())
		return nil
	}
	if err := h.start(); err != nil {
		return nil, err
	}
	d.logger.Debug("submission command", "pid", h.PID, "cmd", b.Shell())
	return h, nil
}

// parseJobID reads the output of a --parsable submission, "<id>[;cluster]".
func parseJobID(out string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	id, _, _ := strings.Cut(line, ";")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("submission printed no job id")
	}
	return id, nil
}

// DryRun asks the engine for its plan without executing anything. The plan
// is written to a timestamped log in the output directory.
func (d *Dispatcher) DryRun(ctx context.Context, req Request) (*Plan, error) {
	b := d.baseCommand(req, "-n", "-p", "-r").Int("--cores", 1)
	cmd := exec.CommandContext(ctx, b.Name(), b.Args()...)
	cmd.Dir = req.Layout.Root
	out, runErr := cmd.CombinedOutput()

	logPath := req.Layout.DryRunLog(d.now())
	if err := os.WriteFile(logPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("write dry-run log: %w", err)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, &ExecutionError{Mode: req.Mode, ExitCode: exitErr.ExitCode(), LogPath: logPath}
		}
		return nil, fmt.Errorf("run %s: %w", b.Name(), runErr)
	}

	plan := &Plan{Text: string(out), LogPath: logPath, State: model.RunStateNotStarted}
	if !plan.State.CanTransitionTo(model.RunStatePlanned) {
		return nil, &model.InvalidTransitionError{Entity: "run", ID: logPath, From: string(plan.State), To: string(model.RunStatePlanned)}
	}
	plan.State = model.RunStatePlanned
	d.logger.Info("dry run complete", "log", logPath)
	return plan, nil
}

// Unlock removes a stale engine lock from the output directory and returns
// the engine's combined output. It must only be run on operator request.
func (d *Dispatcher) Unlock(ctx context.Context, layout workspace.Layout) (string, error) {
	b := cmdline.New(d.tools.Engine, "--unlock").
		Int("--cores", 1).
		Flag("--configfile", layout.ConfigFile()).
		Flag("--snakefile", layout.Snakefile()).
		Flag("--directory", layout.Root)
	cmd := exec.CommandContext(ctx, b.Name(), b.Args()...)
	cmd.Dir = layout.Root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), model.NewLockError(layout.Root, strings.TrimRight(string(out), "\n"), err)
	}
	d.logger.Info("unlocked output directory", "dir", layout.Root)
	return string(out), nil
}

// baseCommand is the engine invocation shared by every mode.
func (d *Dispatcher) baseCommand(req Request, args ...string) *cmdline.Builder {
	return cmdline.New(d.tools.Engine, args...).
		Flag("--configfile", req.Layout.ConfigFile()).
		Flag("--snakefile", req.Layout.Snakefile()).
		Flag("--directory", req.Layout.Root)
}

// runCommand adds the container and restart flags used by real runs.
func (d *Dispatcher) runCommand(req Request) *cmdline.Builder {
	return d.baseCommand(req).
		Bool("--use-singularity", true).
		Flag("--singularity-args", containerArgs(req.BindPaths)).
		Opt("--singularity-prefix", model.OptionalString(req.SingularityCache)).
		Bool("--printshellcmds", true).
		Bool("--rerun-incomplete", true)
}

func containerArgs(binds model.BindPaths) string {
	if len(binds) == 0 {
		return "-C"
	}
	return "-C -B " + binds.String()
}
