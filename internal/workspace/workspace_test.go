package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/me/visiumflow/pkg/model"
)

func fakePipeline(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"workflow/Snakefile":         "rule all:\n    input: []\n",
		"workflow/rules/count.smk":   "# count\n",
		"config/cluster/config.yaml": "jobs: 10\n",
	}
	for rel, content := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPrepare(t *testing.T) {
	pipeline := fakePipeline(t)
	out := filepath.Join(t.TempDir(), "results")

	l, err := Prepare(pipeline, out)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for _, p := range []string{l.LogDir(), l.StateDir(), l.Snakefile(), filepath.Join(out, "workflow", "rules", "count.smk"), filepath.Join(l.ClusterProfile(), "config.yaml")} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestPrepare_DoesNotOverwrite(t *testing.T) {
	pipeline := fakePipeline(t)
	out := t.TempDir()
	edited := filepath.Join(out, "workflow", "Snakefile")
	if err := os.MkdirAll(filepath.Dir(edited), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(edited, []byte("# local edits\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Prepare(pipeline, out); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	data, _ := os.ReadFile(edited)
	if string(data) != "# local edits\n" {
		t.Errorf("Snakefile was overwritten: %q", data)
	}
}

func TestPrepare_MissingSnakefile(t *testing.T) {
	_, err := Prepare(t.TempDir(), t.TempDir())
	if !model.IsCode(err, model.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestValidate(t *testing.T) {
	out := t.TempDir()
	if _, err := Validate(out); err == nil {
		t.Fatal("Validate should reject an empty directory")
	}

	if _, err := Prepare(fakePipeline(t), out); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(New(out).ConfigFile(), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Validate(out); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRotateLog(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "snakemake.log")

	if err := RotateLog(log); err != nil {
		t.Fatalf("RotateLog on missing file: %v", err)
	}
	if err := os.WriteFile(log, []byte("old run\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RotateLog(log); err != nil {
		t.Fatalf("RotateLog: %v", err)
	}
	if _, err := os.Stat(log); !os.IsNotExist(err) {
		t.Error("original log should have been moved")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "snakemake.") || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Errorf("rotated entries = %v", entries)
	}
}

func TestLayout_DryRunLog(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := New("/out").DryRunLog(ts)
	if got != "/out/dryrun.2026-03-04.05-06-07.log" {
		t.Errorf("DryRunLog = %q", got)
	}
}
