// Package workspace prepares and describes a run's output directory.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/me/visiumflow/pkg/model"
)

// Directories copied from the pipeline installation into every output directory.
var copiedTrees = []string{"workflow", "config"}

// Layout names every artifact inside an output directory.
type Layout struct {
	Root string
}

// New returns the layout rooted at outDir.
func New(outDir string) Layout {
	return Layout{Root: outDir}
}

// Paths inside the output directory.
func (l Layout) ConfigFile() string { return filepath.Join(l.Root, "config.json") }
func (l Layout) Snakefile() string { return filepath.Join(l.Root, "workflow", "Snakefile") }
func (l Layout) LogDir() string { return filepath.Join(l.Root, "logfiles") }
func (l Layout) EngineLog() string { return filepath.Join(l.LogDir(), "snakemake.log") }
func (l Layout) JobIDFile() string { return filepath.Join(l.LogDir(), "mjobid.log") }
func (l Layout) SubmitLog() string { return filepath.Join(l.LogDir(), "submit.log") }
func (l Layout) StateDir() string { return filepath.Join(l.Root, ".visiumflow") }
func (l Layout) MasterScript() string { return filepath.Join(l.StateDir(), "master.sh") }
func (l Layout) Ledger() string { return filepath.Join(l.StateDir(), "runs.db") }
func (l Layout) ClusterProfile() string { return filepath.Join(l.Root, "config", "cluster") }

// DryRunLog returns a timestamped path for a plan written at t.
func (l Layout) DryRunLog(t time.Time) string {
	return filepath.Join(l.Root, "dryrun."+t.Format("2006-01-02.15-04-05")+".log")
}

// Prepare creates the output directory structure and copies the pipeline's
// workflow/ and config/ trees into it. Existing files are never overwritten.
func Prepare(pipelineDir, outDir string) (Layout, error) {
	snakefile := filepath.Join(pipelineDir, "workflow", "Snakefile")
	if _, err := os.Stat(snakefile); err != nil {
		return Layout{}, model.NewValidationError("pipeline installation is incomplete",
			model.FieldError{Path: snakefile, Message: "workflow entry point not found"})
	}

	l := New(outDir)
	for _, d := range []string{l.Root, l.LogDir(), l.StateDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create %s: %w", d, err)
		}
	}
	for _, tree := range copiedTrees {
		src := filepath.Join(pipelineDir, tree)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := copyTree(src, filepath.Join(l.Root, tree)); err != nil {
			return Layout{}, fmt.Errorf("copy %s: %w", tree, err)
		}
	}
	return l, nil
}

// Validate checks that outDir holds a prepared workspace.
func Validate(outDir string) (Layout, error) {
	l := New(outDir)
	for _, p := range []string{l.ConfigFile(), l.Snakefile()} {
		if _, err := os.Stat(p); err != nil {
			return Layout{}, model.NewValidationError(
				fmt.Sprintf("'%s' is not a pipeline output directory", outDir),
				model.FieldError{Path: p, Message: "not found"})
		}
	}
	return l, nil
}

// RotateLog renames an existing log to <name>.<mtime>.log so a new run starts
// with an empty file. A missing log is not an error.
func RotateLog(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	rotated := base + "." + info.ModTime().Format("2006-01-02.15-04-05") + ext
	return os.Rename(path, rotated)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if _, err := os.Lstat(target); err == nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
