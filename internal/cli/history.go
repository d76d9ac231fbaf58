package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/me/visiumflow/internal/store"
	"github.com/me/visiumflow/internal/workspace"
	"github.com/me/visiumflow/pkg/model"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var outDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous runs of an output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}
			layout := workspace.New(abs)
			if _, err := os.Stat(layout.Ledger()); errors.Is(err, fs.ErrNotExist) {
				return model.NewValidationError(fmt.Sprintf("no runs recorded in '%s'", abs),
					model.FieldError{Path: layout.Ledger(), Message: "run ledger not found"})
			}

			st, err := store.Open(cmd.Context(), layout.Ledger(), logger)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-8s  %-7s  %-9s  %-16s  %-12s  %-4s  %s\n", "RUN", "MODE", "STATE", "STARTED", "DURATION", "EXIT", "JOB")
			for _, r := range runs {
				fmt.Fprintf(out, "%-8s  %-7s  %-9s  %-16s  %-12s  %-4s  %s\n",
					shortID(r.ID), r.Mode, r.State, humanize.Time(r.StartedAt), duration(r), exitCode(r), dash(r.JobID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "output", "", "Pipeline output directory")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func duration(r *model.RunRecord) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return strings.TrimSpace(humanize.RelTime(r.StartedAt, *r.FinishedAt, "", ""))
}

func exitCode(r *model.RunRecord) string {
	if r.ExitCode == nil {
		return "-"
	}
	return fmt.Sprint(*r.ExitCode)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
