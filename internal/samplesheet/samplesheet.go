// Package samplesheet parses the per-sample metadata table (.csv or .tsv)
// that carries slide, area and image information for each library.
package samplesheet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/me/visiumflow/internal/fsutil"
	"github.com/me/visiumflow/pkg/model"
)

// Column names.
const (
	ColSample         = "sample"
	ColID             = "id"
	ColFastQs         = "fastqs"
	ColCytaImage      = "cytaimage"
	ColSlide          = "slide"
	ColArea           = "area"
	ColImage          = "image"
	ColDarkImage      = "darkimage"
	ColColorizedImage = "colorizedimage"
	ColLoupeAlignment = "loupe_alignment"
	ColBarcodeCSV     = "barcode_csv"
)

var (
	requiredColumns = []string{ColSample, ColCytaImage, ColSlide, ColArea}
	optionalColumns = []string{ColID, ColFastQs, ColImage, ColDarkImage, ColColorizedImage, ColLoupeAlignment, ColBarcodeCSV}
	fileColumns     = []string{ColFastQs, ColCytaImage, ColImage, ColDarkImage, ColColorizedImage, ColLoupeAlignment, ColBarcodeCSV}
)

// Row is one parsed sample sheet line. Path columns hold absolute paths.
type Row struct {
	Sample string
	ID     string
	Line   int
	fields map[string]string
}

// Get returns a column value; optional columns may be empty.
func (r Row) Get(col string) string {
	return r.fields[col]
}

// Optional returns a column value as a model.Optional.
func (r Row) Optional(col string) model.Optional[string] {
	return model.OptionalString(r.fields[col])
}

// Sheet is an indexed sample sheet.
type Sheet struct {
	Path string
	rows map[string]Row
}

// Rows returns the rows sorted by sample name.
func (s *Sheet) Rows() []Row {
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sample < out[j].Sample })
	return out
}

// Match returns the row describing library name. A row matches when its
// sample equals the name or the name is the sample followed by _S<number>.
func (s *Sheet) Match(library string) (Row, bool) {
	if r, ok := s.rows[library]; ok {
		return r, true
	}
	if sample, ok := model.TrimSampleNumber(library); ok {
		r, ok := s.rows[sample]
		return r, ok
	}
	return Row{}, false
}

// Delimiter picks the field separator from the file extension.
func Delimiter(path string) (rune, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ',', nil
	case ".tsv", ".txt":
		return '\t', nil
	}
	return 0, model.NewValidationError("unsupported sample sheet type",
		model.FieldError{Path: path, Message: "provide a .tsv (tab-separated) or .csv (comma-separated) file"})
}

// Load parses the sample sheet at path. Relative paths in file columns are
// resolved against the sheet's directory.
func Load(path string) (*Sheet, error) {
	abs, err := fsutil.Normalize(path, "")
	if err != nil {
		return nil, err
	}
	delim, err := Delimiter(abs)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, model.NewValidationError("cannot open sample sheet", model.FieldError{Path: abs, Message: err.Error()})
	}
	defer f.Close()
	return Parse(f, abs, delim)
}

// Parse reads a sample sheet from r. name is used in error messages and as
// the base for relative paths.
func Parse(r io.Reader, name string, delim rune) (*Sheet, error) {
	lines, err := contentLines(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, model.NewValidationError("sample sheet is empty", model.FieldError{Path: name, Message: "no header"})
	}
	if err != nil {
		return nil, model.NewValidationError("malformed sample sheet", model.FieldError{Path: name, Message: err.Error()})
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[stripped(h)] = i
	}

	sheet := &Sheet{Path: name, rows: make(map[string]Row)}
	var problems []model.FieldError
	baseDir := filepath.Dir(name)

	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			problems = append(problems, model.FieldError{Path: name, Line: line, Message: err.Error()})
			continue
		}
		value := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return stripped(record[i])
		}

		row := Row{Line: line, fields: make(map[string]string)}
		for _, col := range requiredColumns {
			v := value(col)
			if v == "" {
				problems = append(problems, model.FieldError{Path: name, Line: line, Field: col, Message: "missing required field"})
				continue
			}
			row.fields[col] = v
		}
		for _, col := range optionalColumns {
			row.fields[col] = value(col)
		}
		row.Sample = row.fields[ColSample]
		if row.fields[ColID] == "" {
			row.fields[ColID] = row.Sample
		}
		row.ID = row.fields[ColID]

		for _, col := range fileColumns {
			v := row.fields[col]
			if v == "" {
				continue
			}
			p, err := fsutil.Normalize(v, baseDir)
			if err == nil {
				err = fsutil.Readable(p)
			}
			if err != nil {
				problems = append(problems, model.FieldError{Path: name, Line: line, Field: col, Message: err.Error()})
				continue
			}
			row.fields[col] = p
		}

		if row.Sample == "" {
			continue
		}
		if prev, dup := sheet.rows[row.Sample]; dup {
			problems = append(problems, model.FieldError{
				Path: name, Line: line, Field: ColSample,
				Message: fmt.Sprintf("duplicate sample %q (first seen on line %d)", row.Sample, prev.Line),
			})
			continue
		}
		sheet.rows[row.Sample] = row
	}

	if len(problems) > 0 {
		return nil, model.NewValidationError(fmt.Sprintf("errors found while parsing sample sheet '%s'", name), problems...)
	}
	if len(sheet.rows) == 0 {
		return nil, model.NewValidationError("sample sheet lists no samples", model.FieldError{Path: name, Message: "no rows"})
	}
	return sheet, nil
}

// contentLines drops blank lines and # comments.
func contentLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// stripped removes surrounding quotes and whitespace.
func stripped(s string) string {
	return strings.TrimSpace(strings.Trim(strings.Trim(s, `"`), `'`))
}
