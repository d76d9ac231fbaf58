// Package cli implements the visiumflow command line.
package cli

import (
	"log/slog"

	"github.com/me/visiumflow/internal/logging"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger = logging.Discard()
)

// NewRootCmd creates the root cobra command for the visiumflow CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "visiumflow",
		Short: "visiumflow runs Visium CytAssist spatial transcriptomics pipelines",
		Long: `visiumflow pairs FastQ files with their sample sheet, resolves reference data,
writes the run configuration and hands it to the workflow engine, either directly
or as a master job on the batch scheduler.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, err := logging.ParseFormat(flagLogFormat)
			if err != nil {
				return err
			}
			level := logging.ParseLevel(flagLogLevel)
			if flagDebug {
				level = slog.LevelDebug
			}
			logger = logging.NewLoggerWithWriter(level, format, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newUnlockCmd(),
		newCacheCmd(),
		newHistoryCmd(),
	)

	return root
}
