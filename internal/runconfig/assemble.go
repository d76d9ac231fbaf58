// Package runconfig assembles, writes and reads the run configuration
// consumed by the workflow engine.
package runconfig

import (
	"fmt"
	"log/slog"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/me/visiumflow/internal/config"
	"github.com/me/visiumflow/internal/fastq"
	"github.com/me/visiumflow/internal/fsutil"
	"github.com/me/visiumflow/internal/reference"
	"github.com/me/visiumflow/internal/samplesheet"
	"github.com/me/visiumflow/pkg/model"
)

// Assembler merges the FastQ manifest, the sample sheet, reference data and
// run options into a RunConfig.
type Assembler struct {
	catalog *reference.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewAssembler creates an Assembler using catalog for reference lookups.
func NewAssembler(catalog *reference.Catalog, logger *slog.Logger) *Assembler {
	return &Assembler{
		catalog: catalog,
		logger:  logger.With("component", "assembler"),
		now:     time.Now,
	}
}

// Assemble builds the run configuration. Reference lookups and on-disk
// checks happen here so that nothing is deferred to engine execution.
// BindPaths is left empty.
func (a *Assembler) Assemble(manifest fastq.Manifest, sheet *samplesheet.Sheet, opts config.RunOptions, version string) (*model.RunConfig, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ref, err := a.catalog.Lookup(opts.Genome, opts.Assay)
	if err != nil {
		return nil, err
	}
	var missing []model.FieldError
	if err := fsutil.Readable(ref.Transcriptome); err != nil {
		missing = append(missing, model.FieldError{Field: "transcriptome", Path: ref.Transcriptome, Message: err.Error()})
	}
	if p, ok := ref.Probeset.Get(); ok {
		if err := fsutil.Readable(p); err != nil {
			missing = append(missing, model.FieldError{Field: "probeset", Path: p, Message: err.Error()})
		}
	}
	if len(missing) > 0 {
		return nil, model.NewValidationError(
			fmt.Sprintf("reference files for %s/%s are missing from '%s'", opts.Genome, opts.Assay, a.catalog.Root()),
			missing...)
	}

	samples, err := joinSamples(manifest, sheet)
	if err != nil {
		return nil, err
	}

	cfg := &model.RunConfig{
		Project: model.ProjectInfo{
			ID:          uuid.New().String(),
			Version:     version,
			Created:     a.now().UTC().Format(time.RFC3339),
			User:        currentUser(),
			PipelineDir: opts.PipelineDir,
		},
		Options:    opts.Model(),
		References: ref,
		Samples:    samples,
	}

	a.logger.Debug("assembled run config",
		"samples", len(samples),
		"genome", ref.Genome,
		"assay", ref.Assay,
		"probeset", ref.Probeset.IsSet(),
	)
	return cfg, nil
}

// joinSamples pairs every manifest library with its sample sheet row. A
// library without metadata, or a row without FastQs, is an error.
func joinSamples(manifest fastq.Manifest, sheet *samplesheet.Sheet) (map[string]model.SampleRecord, error) {
	var problems []model.FieldError
	samples := make(map[string]model.SampleRecord, len(manifest))
	used := make(map[string]bool)
	ids := make(map[string]string)

	for _, name := range manifest.Names() {
		pair := manifest[name]
		row, ok := sheet.Match(name)
		if !ok {
			problems = append(problems, model.FieldError{
				Path:    pair.R1,
				Message: fmt.Sprintf("library %s has no row in sample sheet '%s'", name, sheet.Path),
			})
			continue
		}
		used[row.Sample] = true

		fastqDir := pair.Dir()
		if d := row.Get(samplesheet.ColFastQs); d != "" {
			fastqDir = d
		}

		id := row.ID
		if id == row.Sample {
			id = name
		}
		if other, dup := ids[id]; dup {
			problems = append(problems, model.FieldError{
				Path:    sheet.Path,
				Line:    row.Line,
				Field:   samplesheet.ColID,
				Message: fmt.Sprintf("libraries %s and %s would share output id %s", other, name, id),
			})
			continue
		}
		ids[id] = name
		samples[name] = model.SampleRecord{
			SampleName:       name,
			SampleID:         id,
			FastQs:           [2]string{pair.R1, pair.R2},
			FastQDir:         fastqDir,
			CytaImage:        row.Get(samplesheet.ColCytaImage),
			Slide:            row.Get(samplesheet.ColSlide),
			Area:             row.Get(samplesheet.ColArea),
			BrightfieldImage: row.Optional(samplesheet.ColImage),
			DarkfieldImage:   row.Optional(samplesheet.ColDarkImage),
			ColorizedImage:   row.Optional(samplesheet.ColColorizedImage),
			LoupeAlignment:   row.Optional(samplesheet.ColLoupeAlignment),
			BarcodeCSV:       row.Optional(samplesheet.ColBarcodeCSV),
		}
	}
	for _, row := range sheet.Rows() {
		if !used[row.Sample] {
			problems = append(problems, model.FieldError{
				Path:    sheet.Path,
				Line:    row.Line,
				Field:   samplesheet.ColSample,
				Message: fmt.Sprintf("sample %s has no FastQ files among the inputs", row.Sample),
			})
		}
	}
	if len(problems) > 0 {
		return nil, model.NewValidationError("sample sheet and FastQ inputs do not agree", problems...)
	}
	return samples, nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
