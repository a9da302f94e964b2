package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amodeus4/emailagent/internal/ingest"
)

func newCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old saved attachments",
		Long: `Delete attachment files saved during ingestion that are older than the
given number of days. Indexed text is not affected.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1, got %d", days)
			}
			removed, err := ingest.Prune(cfg.AttachmentsDir, time.Duration(days)*24*time.Hour, time.Now())
			if err != nil {
				return fmt.Errorf("error pruning attachments: %w", err)
			}
			logger.Info("attachments pruned", "dir", cfg.AttachmentsDir, "removed", removed)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d attachment(s) older than %d day(s)\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", int(ingest.DefaultRetention/(24*time.Hour)), "Remove files older than this many days")
	return cmd
}
