package dispatch

import (
	"strconv"

	"github.com/me/visiumflow/internal/cmdline"
	"github.com/me/visiumflow/pkg/model"
)

// SampleCommand is the count invocation the workflow runs for one sample.
type SampleCommand struct {
	Sample  string
	Command *cmdline.Builder
}

// PreviewCommands returns the per-sample count commands implied by cfg, in
// sample order. Optional images and alignments only appear when set.
func PreviewCommands(cfg *model.RunConfig) []SampleCommand {
	refs := cfg.References
	cmds := make([]SampleCommand, 0, len(cfg.Samples))
	for _, name := range cfg.SampleNames() {
		s := cfg.Samples[name]
		b := cmdline.New("spaceranger", "count").
			Flag("--id", s.ID()).
			Flag("--transcriptome", refs.Transcriptome).
			Opt("--probe-set", refs.Probeset).
			Flag("--fastqs", s.FastQDir).
			Flag("--sample", s.FastQPrefix()).
			Flag("--cytaimage", s.CytaImage).
			Opt("--image", s.BrightfieldImage).
			Opt("--darkimage", s.DarkfieldImage).
			Opt("--colorizedimage", s.ColorizedImage).
			Opt("--loupe-alignment", s.LoupeAlignment).
			Flag("--slide", s.Slide).
			Flag("--area", s.Area).
			Flag("--create-bam", strconv.FormatBool(cfg.Options.CreateBAM)).
			Int("--localcores", cfg.Options.Threads)
		cmds = append(cmds, SampleCommand{Sample: name, Command: b})
	}
	return cmds
}
