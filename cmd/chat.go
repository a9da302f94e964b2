package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amodeus4/emailagent/internal/agent"
	"github.com/amodeus4/emailagent/internal/logging"
)

func newChatCmd() *cobra.Command {
	var runIngest bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the email assistant",
		Long: `Start an interactive conversation with the email assistant.

The assistant answers from the local index and the live mailbox through its
tools. Use --ingest to fetch and index recent mail first. Type "exit" or
"quit", or press Ctrl-D, to leave.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runChat(ctx, runIngest, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&runIngest, "ingest", false, "Fetch and index recent mail before chatting")
	return cmd
}

func runChat(ctx context.Context, runIngest bool, in io.Reader, out io.Writer) error {
	a, err := openApp(ctx, cfg, logger, runIngest)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown failed", logging.Err(err))
		}
	}()

	if runIngest {
		ing, err := a.ingester(cfg, logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Fetching recent emails...")
		report, err := ing.Run(ctx)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		fmt.Fprintf(out, "Indexed %d of %d emails (%d skipped, %d failed).\n\n",
			report.Indexed, report.Listed, report.Skipped, report.Failed)
	}

	provider, err := a.completionProvider(cfg, logger)
	if err != nil {
		return err
	}
	loop := agent.New(provider, a.registry, agent.Config{
		TurnBudget:        cfg.TurnBudget,
		CompletionTimeout: cfg.CompletionTimeout,
	}, agent.WithMetrics(a.instr.Metrics()), agent.WithLogger(logger))

	return repl(ctx, loop.NewSession(ctx), in, out)
}

// repl reads one message per line and prints each reply until the input
// ends, the user leaves or ctx is cancelled.
func repl(ctx context.Context, session *agent.Session, in io.Reader, out io.Writer) error {
	defer session.Close()

	fmt.Fprintln(out, `Email assistant ready. Type "exit" to quit.`)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := session.Send(ctx, text)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nAssistant: %s\n", reply.Text)
	}
}
