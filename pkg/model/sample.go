package model

import (
	"regexp"
)

// SampleRecord is one sequencing library together with its spatial metadata.
type SampleRecord struct {
	SampleName string    `json:"sample_name"`
	SampleID   string    `json:"sample_id"`
	FastQs     [2]string `json:"fastqs"`
	FastQDir   string    `json:"fastq_dir"`
	CytaImage  string    `json:"cytaimage"`
	Slide      string    `json:"slide"`
	Area       string    `json:"area"`

	BrightfieldImage Optional[string] `json:"image,omitzero"`
	DarkfieldImage   Optional[string] `json:"darkimage,omitzero"`
	ColorizedImage   Optional[string] `json:"colorizedimage,omitzero"`
	LoupeAlignment   Optional[string] `json:"loupe_alignment,omitzero"`
	BarcodeCSV       Optional[string] `json:"barcode_csv,omitzero"`
}

var sampleNumberSuffix = regexp.MustCompile(`_S\d+$`)

// TrimSampleNumber strips a trailing _S<n> sample number from a library name
// and reports whether one was present.
func TrimSampleNumber(name string) (string, bool) {
	loc := sampleNumberSuffix.FindStringIndex(name)
	if loc == nil {
		return name, false
	}
	return name[:loc[0]], true
}

// FastQPrefix returns the library name without the trailing _S<n> sample
// number, which is what spaceranger expects for --sample.
func (s SampleRecord) FastQPrefix() string {
	prefix, _ := TrimSampleNumber(s.SampleName)
	return prefix
}

// ID returns the output identifier for the library.
func (s SampleRecord) ID() string {
	if s.SampleID != "" {
		return s.SampleID
	}
	return s.SampleName
}

// Files returns every file referenced by the record, optional images included
// only when present.
func (s SampleRecord) Files() []string {
	files := []string{s.FastQs[0], s.FastQs[1], s.CytaImage}
	for _, o := range []Optional[string]{s.BrightfieldImage, s.DarkfieldImage, s.ColorizedImage, s.LoupeAlignment, s.BarcodeCSV} {
		if v, ok := o.Get(); ok {
			files = append(files, v)
		}
	}
	return files
}
