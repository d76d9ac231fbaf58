package dispatch

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/kballard/go-shellquote"
	"github.com/me/visiumflow/internal/fsutil"
	"github.com/me/visiumflow/pkg/model"
)

var masterTemplate = template.Must(template.New("master").Funcs(template.FuncMap{
	"quote": func(s string) string { return shellquote.Join(s) },
}).Parse(`#!/usr/bin/env bash
# Master job for {{.JobName}}; the engine submits the per-rule jobs itself.
set -euo pipefail
{{- if .Cache}}
export SINGULARITY_CACHEDIR={{quote .Cache}}
{{- end}}
cd {{quote .Dir}}
{{.Command}}
`))

type masterData struct {
	JobName string
	Dir     string
	Cache   string
	Command string
}

// renderMasterScript returns the shell script the master job runs.
func (d *Dispatcher) renderMasterScript(req Request) ([]byte, error) {
	b := d.runCommand(req).
		Int("--jobs", d.cluster.MaxJobs).
		Int("--local-cores", req.Threads).
		Int("--latency-wait", 120)
	profile := d.cluster.Profile
	if profile == "" && fsutil.IsDir(req.Layout.ClusterProfile()) {
		profile = req.Layout.ClusterProfile()
	}
	b.Opt("--profile", model.OptionalString(profile))

	var buf bytes.Buffer
	err := masterTemplate.Execute(&buf, masterData{
		JobName: req.JobName,
		Dir:     req.Layout.Root,
		Cache:   req.SingularityCache,
		Command: b.Shell(),
	})
	if err != nil {
		return nil, fmt.Errorf("render master script: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Dispatcher) writeMasterScript(req Request) (string, error) {
	script, err := d.renderMasterScript(req)
	if err != nil {
		return "", err
	}
	path := req.Layout.MasterScript()
	if err := os.MkdirAll(req.Layout.StateDir(), 0o755); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, script, 0o755); err != nil {
		return "", fmt.Errorf("write master script: %w", err)
	}
	return path, nil
}
