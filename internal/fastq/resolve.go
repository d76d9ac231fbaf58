// Package fastq turns a flat list of FastQ paths into a sample-keyed manifest
// of read pairs.
package fastq

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/me/visiumflow/internal/fsutil"
	"github.com/me/visiumflow/pkg/model"
)

// fileName matches {sample}_L{lane}_{read}_001.fastq[.gz].
var fileName = regexp.MustCompile(`^(.+)_L(\d{3})_([RI][12])_001\.(?:fastq|fq)(?:\.gz)?$`)

// Pair is the validated read pair for one library.
type Pair struct {
	R1   string
	R2   string
	Lane int
}

// Dir returns the directory holding the pair.
func (p Pair) Dir() string {
	return filepath.Dir(p.R1)
}

// Manifest maps sample name to its read pair.
type Manifest map[string]Pair

// Names returns the sample names in sorted order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File is a parsed FastQ filename.
type File struct {
	Path   string
	Sample string
	Lane   int
	Read   string
}

// ParseName splits a FastQ path into its naming-convention tokens.
func ParseName(path string) (File, bool) {
	m := fileName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return File{}, false
	}
	lane, _ := strconv.Atoi(m[2])
	return File{Path: path, Sample: m[1], Lane: lane, Read: m[3]}, true
}

// Resolver validates FastQ inputs.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("component", "fastq-resolver")}
}

// Expand resolves glob patterns the shell did not expand. Literal paths are
// returned unchanged, even when they do not exist, so that Resolve can report them.
func Expand(inputs []string) ([]string, error) {
	var out []string
	for _, in := range inputs {
		base, pattern := doublestar.SplitPattern(filepath.ToSlash(in))
		if pattern == "" || !hasMeta(pattern) {
			out = append(out, in)
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, model.NewValidationError("invalid input pattern", model.FieldError{Path: in, Message: "malformed glob"})
		}
		matches, err := doublestar.Glob(dirFS(base), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", in, err)
		}
		if len(matches) == 0 {
			return nil, model.NewValidationError("input pattern matched no files", model.FieldError{Path: in, Message: "no matches"})
		}
		for _, m := range matches {
			out = append(out, filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m)))
		}
	}
	return out, nil
}

// Resolve groups paths into a Manifest. Every problem found is reported in a
// single validation error; on error no manifest is returned.
func (r *Resolver) Resolve(paths []string) (Manifest, error) {
	var problems []model.FieldError
	type key struct {
		sample string
		read   string
	}
	reads := make(map[key]File)
	lanes := make(map[string]map[int]bool)
	seen := make(map[string]bool)

	for _, p := range paths {
		abs, err := fsutil.Normalize(p, "")
		if err != nil {
			problems = append(problems, model.FieldError{Path: p, Message: err.Error()})
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true

		f, ok := ParseName(abs)
		if !ok {
			problems = append(problems, model.FieldError{
				Path:    abs,
				Message: "filename does not follow {sample}_L{lane}_R{1,2}_001.fastq.gz",
			})
			continue
		}
		if err := fsutil.Readable(abs); err != nil {
			problems = append(problems, model.FieldError{Path: abs, Message: err.Error()})
			continue
		}
		if f.Read == "I1" || f.Read == "I2" {
			r.logger.Warn("skipping index read", "path", abs)
			continue
		}

		if lanes[f.Sample] == nil {
			lanes[f.Sample] = make(map[int]bool)
		}
		lanes[f.Sample][f.Lane] = true

		k := key{f.Sample, f.Read}
		if prev, dup := reads[k]; dup {
			if prev.Lane != f.Lane {
				// Reported once per sample as a multi-lane problem below.
				continue
			}
			problems = append(problems, model.FieldError{
				Path:    abs,
				Message: fmt.Sprintf("more than one %s file for sample %s (also %s)", f.Read, f.Sample, prev.Path),
			})
			continue
		}
		reads[k] = f
	}

	samples := make([]string, 0, len(lanes))
	for s := range lanes {
		samples = append(samples, s)
	}
	sort.Strings(samples)

	manifest := make(Manifest, len(samples))
	for _, s := range samples {
		if n := len(lanes[s]); n > 1 {
			problems = append(problems, model.FieldError{
				Field:   s,
				Message: fmt.Sprintf("sample spans %d lanes; concatenate lanes before running", n),
			})
			continue
		}
		r1, ok1 := reads[key{s, "R1"}]
		r2, ok2 := reads[key{s, "R2"}]
		switch {
		case !ok1:
			problems = append(problems, model.FieldError{Path: r2.Path, Message: "missing R1 mate"})
			continue
		case !ok2:
			problems = append(problems, model.FieldError{Path: r1.Path, Message: "missing R2 mate"})
			continue
		}
		manifest[s] = Pair{R1: r1.Path, R2: r2.Path, Lane: r1.Lane}
	}

	if len(problems) > 0 {
		return nil, model.NewValidationError("invalid FastQ inputs", problems...)
	}
	if len(manifest) == 0 {
		return nil, model.NewValidationError("no FastQ read pairs were provided")
	}

	r.logger.Debug("resolved fastq inputs", "samples", len(manifest), "files", len(seen))
	return manifest, nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func dirFS(base string) fs.FS {
	if base == "" {
		base = "."
	}
	return os.DirFS(base)
}
