package bindpath

import (
	"reflect"
	"testing"

	"github.com/me/visiumflow/pkg/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  model.BindPaths
	}{
		{"nested collapses", []string{"/data/a", "/data/a/b"}, model.BindPaths{"/data/a"}},
		{"sibling prefix kept", []string{"/data/a", "/data/ab"}, model.BindPaths{"/data/a", "/data/ab"}},
		{"dash sorts before slash", []string{"/a/c", "/a-b", "/a"}, model.BindPaths{"/a", "/a-b"}},
		{"duplicates and cleaning", []string{"/data/x/", "/data/x", "/data/./x/y"}, model.BindPaths{"/data/x"}},
		{"relative and empty ignored", []string{"", "rel/dir", "/abs"}, model.BindPaths{"/abs"}},
		{"root subsumes all", []string{"/data", "/", "/scratch"}, model.BindPaths{"/"}},
		{"empty", nil, model.BindPaths{}},
	}
	for _, tt := range tests {
		if got := Resolve(tt.input...); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: Resolve(%v) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestResolve_OrderIndependentAndIdempotent(t *testing.T) {
	paths := []string{"/refs/hg38", "/data/run1/fastq", "/data/run1", "/scratch/out", "/refs/probesets"}
	want := Resolve(paths...)

	perms := [][]string{
		{paths[4], paths[3], paths[2], paths[1], paths[0]},
		{paths[1], paths[0], paths[3], paths[2], paths[4]},
	}
	for _, p := range perms {
		if got := Resolve(p...); !reflect.DeepEqual(got, want) {
			t.Errorf("Resolve(%v) = %v, want %v", p, got, want)
		}
	}
	if again := Resolve(want...); !reflect.DeepEqual(again, want) {
		t.Errorf("Resolve is not idempotent: %v != %v", again, want)
	}
}

func TestStaticPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/lscratch/$SLURM_JOB_ID", "/lscratch"},
		{"/scratch/${USER}/tmp", "/scratch"},
		{"/tmp/static", "/tmp/static"},
		{"$TMPDIR/work", ""},
	}
	for _, tt := range tests {
		if got := StaticPrefix(tt.in); got != tt.want {
			t.Errorf("StaticPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &model.RunConfig{
		Options: model.RunOptions{
			OutputDir:        "/scratch/out",
			TmpDir:           "/lscratch/$SLURM_JOB_ID",
			SingularityCache: "/scratch/out/.singularity",
			SIFCache:         model.Some("/shared/sif"),
		},
		References: model.ReferenceSelection{
			Transcriptome: "/refs/refdata-gex-GRCh38-2020-A",
			Probeset:      model.Some("/refs/probesets/v2.csv"),
		},
		Samples: map[string]model.SampleRecord{
			"A_S1": {
				SampleName:     "A_S1",
				FastQs:         [2]string{"/data/run1/A_S1_L001_R1_001.fastq.gz", "/data/run1/A_S1_L001_R2_001.fastq.gz"},
				FastQDir:       "/data/run1",
				CytaImage:      "/images/A/cyta.tif",
				ColorizedImage: model.Some("/images/A/color/c.tif"),
			},
		},
	}

	got := FromConfig(cfg)
	want := model.BindPaths{
		"/data/run1",
		"/images/A",
		"/lscratch",
		"/refs/probesets",
		"/refs/refdata-gex-GRCh38-2020-A",
		"/scratch/out",
		"/shared/sif",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromConfig = %v, want %v", got, want)
	}
	if got.String() != "/data/run1,/images/A,/lscratch,/refs/probesets,/refs/refdata-gex-GRCh38-2020-A,/scratch/out,/shared/sif" {
		t.Errorf("String() = %q", got.String())
	}
}
