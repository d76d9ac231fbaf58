package model

import (
	"sort"
	"strings"
)

// RunConfig is the manifest handed to the workflow engine.
// It is written once per run, before dispatch, and not modified afterwards.
type RunConfig struct {
	Project    ProjectInfo             `json:"project"`
	Options    RunOptions              `json:"options"`
	References ReferenceSelection      `json:"references"`
	Samples    map[string]SampleRecord `json:"samples"`

	// BindPaths is filled in after assembly by the bind-path resolver.
	BindPaths BindPaths `json:"bind_paths"`
}

// SampleNames returns the manifest keys in sorted order.
func (c *RunConfig) SampleNames() []string {
	names := make([]string, 0, len(c.Samples))
	for name := range c.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProjectInfo describes the run for provenance.
type ProjectInfo struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Created     string `json:"created"`
	User        string `json:"user"`
	PipelineDir string `json:"pipeline_dir"`
}

// RunOptions are the global options recorded in the run configuration.
type RunOptions struct {
	CreateBAM        bool             `json:"create_bam"`
	Threads          int              `json:"threads"`
	OutputDir        string           `json:"output_dir"`
	TmpDir           string           `json:"tmp_dir"`
	Mode             ExecutionMode    `json:"mode"`
	JobName          string           `json:"job_name"`
	SingularityCache string           `json:"singularity_cache"`
	SIFCache         Optional[string] `json:"sif_cache,omitzero"`
}

// ReferenceSelection is the resolved genome/assay reference data.
// Probeset is absent for poly-A assays.
type ReferenceSelection struct {
	Genome        string           `json:"genome"`
	Assay         string           `json:"assay"`
	Transcriptome string           `json:"transcriptome"`
	Probeset      Optional[string] `json:"probeset,omitzero"`
}

// BindPaths is a canonical, sorted set of host directories in which no entry
// is a descendant of another.
type BindPaths []string

// String renders the set the way container runtimes accept it for -B.
func (b BindPaths) String() string {
	return strings.Join(b, ",")
}
