// Package config holds the option structs for the CLI and their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/me/visiumflow/internal/fsutil"
	"github.com/me/visiumflow/pkg/model"
)

// RunOptions holds every option the run command recognises.
type RunOptions struct {
	Inputs           []string // FastQ files or glob patterns
	SampleSheet      string   // .csv/.tsv with per-sample metadata
	OutputDir        string
	Genome           string
	Assay            string
	Mode             model.ExecutionMode
	JobName          string
	DryRun           bool
	Silent           bool
	Threads          int
	TmpDir           string
	CreateBAM        bool
	SingularityCache string // default <output>/.singularity
	SIFCache         string // directory of pre-pulled .sif images
	PipelineDir      string // holds workflow/ and config/
	ResourceBundle   string // root for relative reference paths (default <pipeline>/resources)
	ReferenceCatalog string // YAML catalog replacing the bundled one
}

// DefaultRunOptions returns sensible defaults.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Genome:      "hg38",
		Assay:       "ffpe-v2",
		Mode:        model.ExecutionModeCluster,
		JobName:     "pl:visiumflow",
		Threads:     2,
		TmpDir:      "/lscratch/$SLURM_JOB_ID",
		PipelineDir: DefaultPipelineDir(),
	}
}

// DefaultPipelineDir returns VISIUMFLOW_HOME, or the parent of the directory
// holding the running executable.
func DefaultPipelineDir() string {
	if d := os.Getenv("VISIUMFLOW_HOME"); d != "" {
		return d
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(filepath.Dir(exe))
}

// DefaultResourceBundle returns VISIUMFLOW_RESOURCES, or <pipelineDir>/resources.
func DefaultResourceBundle(pipelineDir string) string {
	if d := os.Getenv("VISIUMFLOW_RESOURCES"); d != "" {
		return d
	}
	return filepath.Join(pipelineDir, "resources")
}

var jobNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)

// Validate checks the options and fills in derived defaults.
func (o *RunOptions) Validate() error {
	var problems []model.FieldError
	if len(o.Inputs) == 0 {
		problems = append(problems, model.FieldError{Field: "input", Message: "at least one FastQ file is required"})
	}
	if o.SampleSheet == "" {
		problems = append(problems, model.FieldError{Field: "sheet", Message: "a sample sheet is required"})
	}
	if o.OutputDir == "" {
		problems = append(problems, model.FieldError{Field: "output", Message: "an output directory is required"})
	}
	if _, err := model.ParseExecutionMode(string(o.Mode)); err != nil {
		problems = append(problems, model.FieldError{Field: "mode", Message: fmt.Sprintf("unsupported mode %q", o.Mode)})
	}
	if o.Threads < 1 {
		problems = append(problems, model.FieldError{Field: "threads", Message: "must be at least 1"})
	}
	if !jobNamePattern.MatchString(o.JobName) {
		problems = append(problems, model.FieldError{Field: "job-name", Message: fmt.Sprintf("%q contains characters the scheduler rejects", o.JobName)})
	}
	if strings.TrimSpace(o.TmpDir) == "" {
		problems = append(problems, model.FieldError{Field: "tmp-dir", Message: "must not be empty"})
	}
	if o.PipelineDir == "" {
		problems = append(problems, model.FieldError{Field: "pipeline-dir", Message: "must not be empty"})
	}
	if len(problems) > 0 {
		return model.NewValidationError("invalid run options", problems...)
	}

	// The engine runs inside the output directory, so every recorded path
	// must be absolute.
	if o.ResourceBundle == "" {
		o.ResourceBundle = DefaultResourceBundle(o.PipelineDir)
	}
	for _, p := range []*string{&o.OutputDir, &o.SampleSheet, &o.PipelineDir, &o.ResourceBundle, &o.ReferenceCatalog, &o.SingularityCache, &o.SIFCache} {
		if *p == "" {
			continue
		}
		abs, err := fsutil.Normalize(*p, "")
		if err != nil {
			return err
		}
		*p = abs
	}
	if o.SingularityCache == "" {
		o.SingularityCache = filepath.Join(o.OutputDir, ".singularity")
	}
	tmp, err := absTmpDir(o.TmpDir)
	if err != nil {
		return err
	}
	o.TmpDir = tmp
	return nil
}

// absTmpDir makes the static part of a scratch path absolute. Variables are
// left for the compute node to expand, and a path that starts with one is
// kept as given.
func absTmpDir(p string) (string, error) {
	p = strings.TrimSpace(p)
	if filepath.IsAbs(p) || strings.HasPrefix(p, "$") {
		return p, nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve tmp dir: %w", err)
	}
	return abs, nil
}

// Model returns the subset of options recorded in the run configuration.
func (o RunOptions) Model() model.RunOptions {
	return model.RunOptions{
		CreateBAM:        o.CreateBAM,
		Threads:          o.Threads,
		OutputDir:        o.OutputDir,
		TmpDir:           o.TmpDir,
		Mode:             o.Mode,
		JobName:          o.JobName,
		SingularityCache: o.SingularityCache,
		SIFCache:         model.OptionalString(o.SIFCache),
	}
}

// Tools names the external programs the dispatcher invokes.
type Tools struct {
	Engine    string // workflow engine (default "snakemake")
	Container string // container runtime (default "singularity")
	Submit    string // batch submission command (default "sbatch")
}

// DefaultTools returns sensible defaults.
func DefaultTools() Tools {
	return Tools{
		Engine:    "snakemake",
		Container: "singularity",
		Submit:    "sbatch",
	}
}

// Cluster configures the master job submitted in cluster mode.
type Cluster struct {
	Partition string // empty means the scheduler default
	Memory    string
	Time      string
	CPUs      int
	MaxJobs   int    // concurrent jobs the engine may submit
	Profile   string // engine cluster profile directory, optional
}

// DefaultCluster returns sensible defaults.
func DefaultCluster() Cluster {
	return Cluster{
		Memory:  "8g",
		Time:    "5-00:00:00",
		CPUs:    2,
		MaxJobs: 500,
	}
}
