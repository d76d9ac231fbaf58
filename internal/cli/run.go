package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/visiumflow/internal/bindpath"
	"github.com/me/visiumflow/internal/config"
	"github.com/me/visiumflow/internal/dispatch"
	"github.com/me/visiumflow/internal/fastq"
	"github.com/me/visiumflow/internal/reference"
	"github.com/me/visiumflow/internal/runconfig"
	"github.com/me/visiumflow/internal/samplesheet"
	"github.com/me/visiumflow/internal/workspace"
	"github.com/me/visiumflow/pkg/model"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	opts := config.DefaultRunOptions()
	cluster := config.DefaultCluster()
	var mode string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Configure and launch a pipeline run",
		Long: `Resolve FastQ inputs against the sample sheet, write config.json into the
output directory and start the workflow engine.

In cluster mode the command returns once the scheduler has accepted the master
job; its id is written to logfiles/mjobid.log. In local mode it waits for the
engine to finish. --dry-run prints the engine's plan without running anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Mode = model.ExecutionMode(mode)
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), opts, cluster)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.Inputs, "input", nil, "FastQ file or glob pattern (repeatable)")
	f.StringVar(&opts.OutputDir, "output", "", "Pipeline output directory")
	f.StringVar(&opts.SampleSheet, "sheet", "", "Sample sheet (.csv or .tsv)")
	f.StringVar(&opts.Genome, "genome", opts.Genome, "Reference genome")
	f.StringVar(&opts.Assay, "assay", opts.Assay, "Assay chemistry (polya, ffpe-v1, ffpe-v2)")
	f.StringVar(&mode, "mode", string(opts.Mode), "Execution mode (local, cluster)")
	f.StringVar(&opts.JobName, "job-name", opts.JobName, "Scheduler job name of the master job")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Print the engine's plan without running it")
	f.BoolVar(&opts.Silent, "silent", false, "Do not print the dry-run plan")
	f.IntVar(&opts.Threads, "threads", opts.Threads, "Threads for local rules")
	f.StringVar(&opts.TmpDir, "tmp-dir", opts.TmpDir, "Scratch directory on compute nodes")
	f.BoolVar(&opts.CreateBAM, "create-bam", false, "Keep the aligned BAM files")
	f.StringVar(&opts.SingularityCache, "singularity-cache", "", "Container image cache (default <output>/.singularity)")
	f.StringVar(&opts.SIFCache, "sif-cache", "", "Directory of pre-pulled SIF images")
	f.StringVar(&cluster.Partition, "partition", "", "Scheduler partition for the master job")
	f.StringVar(&opts.PipelineDir, "pipeline-dir", opts.PipelineDir, "Pipeline installation (or VISIUMFLOW_HOME)")
	f.StringVar(&opts.ResourceBundle, "resource-bundle", "", "Reference data root (or VISIUMFLOW_RESOURCES)")
	f.StringVar(&opts.ReferenceCatalog, "reference-catalog", "", "YAML reference catalog replacing the built-in one")

	for _, name := range []string{"input", "output", "sheet"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runPipeline(ctx context.Context, out io.Writer, opts config.RunOptions, cluster config.Cluster) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	d := dispatch.New(config.DefaultTools(), cluster, logger)
	if err := d.CheckDependencies(opts.Mode, opts.DryRun); err != nil {
		return err
	}

	paths, err := fastq.Expand(opts.Inputs)
	if err != nil {
		return err
	}
	manifest, err := fastq.NewResolver(logger).Resolve(paths)
	if err != nil {
		return err
	}
	sheet, err := samplesheet.Load(opts.SampleSheet)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(opts)
	if err != nil {
		return err
	}

	cfg, err := runconfig.NewAssembler(catalog, logger).Assemble(manifest, sheet, opts, Version)
	if err != nil {
		return err
	}
	cfg.BindPaths = bindpath.FromConfig(cfg)

	layout, err := workspace.Prepare(opts.PipelineDir, cfg.Options.OutputDir)
	if err != nil {
		return err
	}
	if err := runconfig.Write(layout.ConfigFile(), cfg); err != nil {
		return fmt.Errorf("write run config: %w", err)
	}
	logger.Info("wrote run config", "path", layout.ConfigFile(), "samples", len(cfg.Samples))

	req := dispatch.NewRequest(layout, cfg)
	led := openLedger(ctx, layout)
	defer led.Close()
	rec := &model.RunRecord{
		ID:         cfg.Project.ID,
		Mode:       req.Mode,
		State:      model.RunStateNotStarted,
		DryRun:     opts.DryRun,
		ConfigPath: layout.ConfigFile(),
		StartedAt:  time.Now().UTC(),
	}

	if opts.DryRun {
		plan, err := d.DryRun(ctx, req)
		if err != nil {
			return err
		}
		rec.State = plan.State
		rec.LogPath = plan.LogPath
		finished := time.Now().UTC()
		rec.FinishedAt = &finished
		led.create(ctx, rec)
		if !opts.Silent {
			printPlan(out, cfg, manifest, layout, plan)
		}
		return nil
	}

	h, err := d.Launch(ctx, req)
	if err != nil {
		return err
	}
	rec.State = h.State()
	rec.LogPath = h.LogPath
	led.create(ctx, rec)

	waitErr := h.Wait()
	rec.JobID = h.JobID
	led.finish(ctx, rec, h)
	if waitErr != nil {
		return waitErr
	}

	if h.Detached() {
		fmt.Fprintf(out, "Submitted master job %s\n", h.JobID)
		fmt.Fprintf(out, "  Master log: %s\n", layout.EngineLog())
		fmt.Fprintf(out, "  Job id:     %s\n", layout.JobIDFile())
		return nil
	}
	fmt.Fprintf(out, "Run complete: %s\n", layout.Root)
	fmt.Fprintf(out, "  Log: %s\n", h.LogPath)
	return nil
}

func loadCatalog(opts config.RunOptions) (*reference.Catalog, error) {
	if opts.ReferenceCatalog != "" {
		return reference.Load(opts.ReferenceCatalog, opts.ResourceBundle)
	}
	return reference.Default(opts.ResourceBundle)
}

func printPlan(out io.Writer, cfg *model.RunConfig, manifest fastq.Manifest, layout workspace.Layout, plan *dispatch.Plan) {
	fmt.Fprintf(out, "Dry run: %d samples, %s of FastQ input\n", len(cfg.Samples), humanize.Bytes(fastqBytes(manifest)))
	fmt.Fprintf(out, "  Config:     %s\n", layout.ConfigFile())
	fmt.Fprintf(out, "  Bind paths: %s\n", cfg.BindPaths)
	fmt.Fprintf(out, "  Reference:  %s/%s\n", cfg.References.Genome, cfg.References.Assay)
	fmt.Fprintln(out)
	for _, sc := range dispatch.PreviewCommands(cfg) {
		fmt.Fprintf(out, "# %s\n%s\n", sc.Sample, sc.Command.Shell())
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, plan.Text)
	fmt.Fprintf(out, "\nPlan written to %s\n", plan.LogPath)
}

func fastqBytes(m fastq.Manifest) uint64 {
	var total uint64
	for _, p := range m {
		for _, path := range []string{p.R1, p.R2} {
			if info, err := os.Stat(path); err == nil {
				total += uint64(info.Size())
			}
		}
	}
	return total
}
