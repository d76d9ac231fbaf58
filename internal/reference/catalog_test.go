package reference

import (
	"strings"
	"testing"

	"github.com/me/visiumflow/pkg/model"
)

func TestDefault_Lookup(t *testing.T) {
	c, err := Default("/refs")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	sel, err := c.Lookup("hg38", "ffpe-v2")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if sel.Transcriptome != "/refs/refdata-gex-GRCh38-2020-A" {
		t.Errorf("Transcriptome = %q", sel.Transcriptome)
	}
	p, ok := sel.Probeset.Get()
	if !ok || !strings.HasPrefix(p, "/refs/probesets/") {
		t.Errorf("Probeset = (%q, %v), want a path under /refs/probesets", p, ok)
	}

	sel, err = c.Lookup("mm10", "polya")
	if err != nil {
		t.Fatalf("Lookup polya: %v", err)
	}
	if sel.Probeset.IsSet() {
		t.Error("poly-A assay must not carry a probeset")
	}
}

func TestLookup_Unknown(t *testing.T) {
	c, err := Default("/refs")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Lookup("hg19", "polya"); !model.IsCode(err, model.ErrValidation) {
		t.Errorf("unknown genome error = %v", err)
	}
	if _, err := c.Lookup("hg38", "visium-hd"); !model.IsCode(err, model.ErrValidation) {
		t.Errorf("unknown assay error = %v", err)
	}
}

func TestParse_ProbeBasedWithoutProbeset(t *testing.T) {
	input := `
assays:
  ffpe-v2: {probe_based: true}
genomes:
  dm6:
    organism: fly
    transcriptome: /abs/refdata-dm6
`
	c, err := Parse(strings.NewReader(input), "/ignored")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = c.Lookup("dm6", "ffpe-v2")
	if err == nil || !strings.Contains(err.Error(), "no ffpe-v2 probeset") {
		t.Fatalf("error = %v, want missing probeset", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown field", "assays: {}\ngenomes: {}\nextra: 1\n"},
		{"no transcriptome", "genomes:\n  g1: {organism: x}\n"},
		{"probeset for unknown assay", "assays: {}\ngenomes:\n  g1:\n    transcriptome: t\n    probesets: {nope: p.csv}\n"},
	}
	for _, tt := range tests {
		if _, err := Parse(strings.NewReader(tt.input), ""); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestNames(t *testing.T) {
	c, err := Default("")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GenomeNames(); len(got) != 2 || got[0] != "hg38" || got[1] != "mm10" {
		t.Errorf("GenomeNames() = %v", got)
	}
	if got := c.AssayNames(); len(got) != 3 || got[0] != "ffpe-v1" {
		t.Errorf("AssayNames() = %v", got)
	}
}
