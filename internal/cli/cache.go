package cli

import (
	"github.com/me/visiumflow/pkg/model"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	var sifCache string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Pre-pull the pipeline's container images into a SIF cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Debug("cache requested", "sif_cache", sifCache, "dry_run", dryRun)
			return model.NewNotImplementedError("caching container images")
		},
	}

	cmd.Flags().StringVar(&sifCache, "sif-cache", "", "Directory to store SIF images in")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the images that would be pulled")
	_ = cmd.MarkFlagRequired("sif-cache")
	return cmd
}
