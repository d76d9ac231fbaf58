package cli

import (
	"fmt"
	"path/filepath"

	"github.com/me/visiumflow/internal/config"
	"github.com/me/visiumflow/internal/dispatch"
	"github.com/me/visiumflow/internal/workspace"
	"github.com/me/visiumflow/pkg/model"
	"github.com/spf13/cobra"
)

func newUnlockCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Remove a stale engine lock from an output directory",
		Long: `Remove the lock a crashed or killed run left behind. Only do this when no
run is active against the directory; runs never unlock on their own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}
			layout, err := workspace.Validate(abs)
			if err != nil {
				return err
			}

			d := dispatch.New(config.DefaultTools(), config.DefaultCluster(), logger)
			if err := d.CheckDependencies(model.ExecutionModeLocal, true); err != nil {
				return err
			}
			if _, err := d.Unlock(cmd.Context(), layout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully unlocked pipeline output directory: %s\n", layout.Root)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "output", "", "Pipeline output directory")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
