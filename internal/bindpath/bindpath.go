// Package bindpath computes the host directories that must be mounted into
// the container runtime for a run.
package bindpath

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/me/visiumflow/internal/fsutil"
	"github.com/me/visiumflow/pkg/model"
)

// Resolve returns the minimal covering set of the given directories:
// duplicates are removed and any path below another path in the set is dropped.
// Relative and empty paths are ignored. The result does not depend on input order.
func Resolve(paths ...string) model.BindPaths {
	uniq := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" || !filepath.IsAbs(p) {
			continue
		}
		uniq[filepath.Clean(p)] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for p := range uniq {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	// After sorting, an ancestor kept earlier may not be the last kept entry
	// ("/a", "/a-b", "/a/c"), so check every kept path.
	out := make(model.BindPaths, 0, len(sorted))
	for _, p := range sorted {
		covered := false
		for _, kept := range out {
			if fsutil.IsAncestor(kept, p) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}

// FromConfig collects the directories referenced by cfg and resolves them.
// Files contribute their parent directory, directories contribute themselves.
func FromConfig(cfg *model.RunConfig, extra ...string) model.BindPaths {
	var dirs []string
	file := func(p string) {
		if p != "" {
			dirs = append(dirs, filepath.Dir(p))
		}
	}
	optFile := func(o model.Optional[string]) {
		if v, ok := o.Get(); ok {
			file(v)
		}
	}

	for _, name := range cfg.SampleNames() {
		s := cfg.Samples[name]
		for _, f := range s.Files() {
			file(f)
		}
		dirs = append(dirs, s.FastQDir)
	}

	dirs = append(dirs, cfg.References.Transcriptome)
	optFile(cfg.References.Probeset)

	dirs = append(dirs,
		cfg.Options.OutputDir,
		StaticPrefix(cfg.Options.TmpDir),
		cfg.Options.SingularityCache,
	)
	if v, ok := cfg.Options.SIFCache.Get(); ok {
		dirs = append(dirs, v)
	}
	dirs = append(dirs, extra...)
	return Resolve(dirs...)
}

// StaticPrefix returns the leading part of path before the first segment that
// references an environment variable, e.g. /lscratch/$SLURM_JOB_ID → /lscratch.
// Variables are expanded on the compute node, so only the prefix is known here.
func StaticPrefix(path string) string {
	if !strings.Contains(path, "$") {
		return path
	}
	segments := strings.Split(path, string(filepath.Separator))
	var kept []string
	for _, seg := range segments {
		if strings.Contains(seg, "$") {
			break
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, string(filepath.Separator))
}
