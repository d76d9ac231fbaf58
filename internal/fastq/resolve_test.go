package fastq

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/me/visiumflow/pkg/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// touch creates empty files under dir and returns their paths.
func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		sample string
		lane   int
		read   string
	}{
		{"LIB_WT_S1_L001_R1_001.fastq.gz", true, "LIB_WT_S1", 1, "R1"},
		{"LIB_KO_S3_L002_R2_001.fq.gz", true, "LIB_KO_S3", 2, "R2"},
		{"A_L001_I1_001.fastq", true, "A", 1, "I1"},
		{"A_R1.fastq.gz", false, "", 0, ""},
		{"A_L1_R1_001.fastq.gz", false, "", 0, ""},
		{"A_L001_R3_001.fastq.gz", false, "", 0, ""},
	}
	for _, tt := range tests {
		f, ok := ParseName("/x/" + tt.name)
		if ok != tt.ok {
			t.Errorf("ParseName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if f.Sample != tt.sample || f.Lane != tt.lane || f.Read != tt.read {
			t.Errorf("ParseName(%q) = %+v", tt.name, f)
		}
	}
}

func TestResolve_TwoSamples(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir,
		"LIB_WT_S1_L001_R1_001.fastq.gz",
		"LIB_WT_S1_L001_R2_001.fastq.gz",
		"LIB_KO_S3_L001_R1_001.fastq.gz",
		"LIB_KO_S3_L001_R2_001.fastq.gz",
	)

	m, err := NewResolver(newTestLogger()).Resolve(paths)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("len(manifest) = %d, want 2", len(m))
	}
	wt := m["LIB_WT_S1"]
	if !strings.HasSuffix(wt.R1, "LIB_WT_S1_L001_R1_001.fastq.gz") || !strings.HasSuffix(wt.R2, "LIB_WT_S1_L001_R2_001.fastq.gz") {
		t.Errorf("LIB_WT_S1 pair = %+v", wt)
	}
	if wt.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", wt.Dir(), dir)
	}
	if got := m.Names(); got[0] != "LIB_KO_S3" || got[1] != "LIB_WT_S1" {
		t.Errorf("Names() = %v", got)
	}
}

func TestResolve_OrderIndependent(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir,
		"B_S2_L001_R2_001.fastq.gz",
		"A_S1_L001_R1_001.fastq.gz",
		"B_S2_L001_R1_001.fastq.gz",
		"A_S1_L001_R2_001.fastq.gz",
	)
	r := NewResolver(newTestLogger())
	first, err := r.Resolve(paths)
	if err != nil {
		t.Fatal(err)
	}
	reversed := append([]string(nil), paths...)
	sort.Sort(sort.Reverse(sort.StringSlice(reversed)))
	second, err := r.Resolve(reversed)
	if err != nil {
		t.Fatal(err)
	}
	for name, pair := range first {
		if second[name] != pair {
			t.Errorf("sample %s: %+v != %+v", name, pair, second[name])
		}
	}
}

func TestResolve_Unpaired(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir,
		"A_S1_L001_R1_001.fastq.gz",
		"A_S1_L001_R2_001.fastq.gz",
		"B_S2_L001_R1_001.fastq.gz",
	)
	m, err := NewResolver(newTestLogger()).Resolve(paths)
	if m != nil {
		t.Errorf("expected no manifest, got %v", m)
	}
	if !model.IsCode(err, model.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "B_S2_L001_R1_001.fastq.gz") || !strings.Contains(err.Error(), "missing R2 mate") {
		t.Errorf("error does not name the offending file: %v", err)
	}
}

func TestResolve_MultiLaneRejected(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir,
		"A_S1_L001_R1_001.fastq.gz",
		"A_S1_L001_R2_001.fastq.gz",
		"A_S1_L002_R1_001.fastq.gz",
		"A_S1_L002_R2_001.fastq.gz",
	)
	_, err := NewResolver(newTestLogger()).Resolve(paths)
	if err == nil || !strings.Contains(err.Error(), "spans 2 lanes") {
		t.Fatalf("error = %v, want multi-lane rejection", err)
	}
}

func TestResolve_BadName(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "reads_1.fq.gz")
	_, err := NewResolver(newTestLogger()).Resolve(paths)
	if err == nil || !strings.Contains(err.Error(), "reads_1.fq.gz") {
		t.Fatalf("error = %v, want naming-convention error", err)
	}
}

func TestResolve_MissingFile(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A_S1_L001_R1_001.fastq.gz")
	paths = append(paths, filepath.Join(dir, "A_S1_L001_R2_001.fastq.gz"))
	_, err := NewResolver(newTestLogger()).Resolve(paths)
	if err == nil || !strings.Contains(err.Error(), "not readable") {
		t.Fatalf("error = %v, want readability error", err)
	}
}

func TestResolve_SkipsIndexReadsAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir,
		"A_S1_L001_R1_001.fastq.gz",
		"A_S1_L001_R2_001.fastq.gz",
		"A_S1_L001_I1_001.fastq.gz",
	)
	paths = append(paths, paths[0])
	m, err := NewResolver(newTestLogger()).Resolve(paths)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(m) != 1 {
		t.Errorf("len(manifest) = %d, want 1", len(m))
	}
}

func TestResolve_Empty(t *testing.T) {
	_, err := NewResolver(newTestLogger()).Resolve(nil)
	if !model.IsCode(err, model.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"run1/A_S1_L001_R1_001.fastq.gz",
		"run1/A_S1_L001_R2_001.fastq.gz",
		"run2/nested/B_S2_L001_R1_001.fastq.gz",
		"notes.txt",
	)

	got, err := Expand([]string{filepath.Join(dir, "**", "*.fastq.gz"), filepath.Join(dir, "literal.fastq.gz")})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Expand = %v, want 3 matches plus the literal path", got)
	}
	if got[3] != filepath.Join(dir, "literal.fastq.gz") {
		t.Errorf("literal path changed: %q", got[3])
	}

	if _, err := Expand([]string{filepath.Join(dir, "*.bam")}); err == nil {
		t.Error("Expand should fail when a pattern matches nothing")
	}
}
