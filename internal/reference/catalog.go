// Package reference maps genome builds and assay types to the reference data
// files a run needs.
package reference

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/me/visiumflow/pkg/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Assay describes a library preparation chemistry.
type Assay struct {
	ProbeBased  bool   `yaml:"probe_based"`
	Description string `yaml:"description"`
}

// Genome describes the reference data for one genome build.
type Genome struct {
	Organism      string            `yaml:"organism"`
	Transcriptome string            `yaml:"transcriptome"`
	Probesets     map[string]string `yaml:"probesets"`
}

// Catalog is the set of known genomes and assays. It is built once at startup
// and passed to whatever needs it.
type Catalog struct {
	Assays  map[string]Assay  `yaml:"assays"`
	Genomes map[string]Genome `yaml:"genomes"`

	root string
}

// Default returns the catalog bundled with the binary, rooted at root.
func Default(root string) (*Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog), root)
}

// Load reads a catalog file.
func Load(path, root string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference catalog: %w", err)
	}
	defer f.Close()
	return Parse(f, root)
}

// Parse decodes a YAML catalog. Relative reference paths are resolved against root.
func Parse(r io.Reader, root string) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse reference catalog: %w", err)
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve reference root: %w", err)
		}
		root = abs
	}
	c.root = root
	for name, g := range c.Genomes {
		if g.Transcriptome == "" {
			return nil, fmt.Errorf("reference catalog: genome %s has no transcriptome", name)
		}
		for assay := range g.Probesets {
			if _, ok := c.Assays[assay]; !ok {
				return nil, fmt.Errorf("reference catalog: genome %s lists a probeset for unknown assay %s", name, assay)
			}
		}
	}
	return &c, nil
}

// Root returns the directory relative reference paths resolve against.
func (c *Catalog) Root() string {
	return c.root
}

// GenomeNames returns the known genome builds in sorted order.
func (c *Catalog) GenomeNames() []string {
	return sortedKeys(c.Genomes)
}

// AssayNames returns the known assay types in sorted order.
func (c *Catalog) AssayNames() []string {
	return sortedKeys(c.Assays)
}

// Lookup resolves the reference data for a genome build and assay. The
// probeset is present only for probe-based assays.
func (c *Catalog) Lookup(genome, assay string) (model.ReferenceSelection, error) {
	g, ok := c.Genomes[genome]
	if !ok {
		return model.ReferenceSelection{}, model.NewValidationError(
			fmt.Sprintf("unknown genome build %q", genome),
			model.FieldError{Field: "genome", Message: fmt.Sprintf("choose one of %v", c.GenomeNames())})
	}
	a, ok := c.Assays[assay]
	if !ok {
		return model.ReferenceSelection{}, model.NewValidationError(
			fmt.Sprintf("unknown assay %q", assay),
			model.FieldError{Field: "assay", Message: fmt.Sprintf("choose one of %v", c.AssayNames())})
	}

	sel := model.ReferenceSelection{
		Genome:        genome,
		Assay:         assay,
		Transcriptome: c.resolve(g.Transcriptome),
	}
	if a.ProbeBased {
		p, ok := g.Probesets[assay]
		if !ok {
			return model.ReferenceSelection{}, model.NewValidationError(
				fmt.Sprintf("no %s probeset is available for genome %s", assay, genome),
				model.FieldError{Field: "assay", Message: "probe-based assays need a probeset"})
		}
		sel.Probeset = model.Some(c.resolve(p))
	}
	return sel, nil
}

func (c *Catalog) resolve(p string) string {
	if filepath.IsAbs(p) || c.root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.root, p)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
