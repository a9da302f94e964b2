package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amodeus4/emailagent/internal/logging"
)

func newIngestCmd() *cobra.Command {
	var (
		query     string
		maxEmails int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch recent mail and index it",
		Long: `Fetch messages matching a mailbox query, extract the text of relevant
attachments and index everything into the local store.

Messages fail independently: a message that cannot be fetched or indexed is
reported and the rest continue. Running the command again retries failures.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("query") {
				cfg.IngestQuery = query
			}
			if cmd.Flags().Changed("max") {
				cfg.IngestMaxEmails = maxEmails
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("shutdown failed", logging.Err(err))
				}
			}()

			ing, err := a.ingester(cfg, logger)
			if err != nil {
				return err
			}
			report, err := ing.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listed:  %d\nIndexed: %d\nSkipped: %d\nFailed:  %d\n",
				report.Listed, report.Indexed, report.Skipped, report.Failed)
			for _, e := range report.Errors {
				fmt.Fprintf(out, "  %v\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "in:inbox", "Mailbox search query")
	cmd.Flags().IntVarP(&maxEmails, "max", "n", 50, "Maximum number of messages to fetch")
	return cmd
}
