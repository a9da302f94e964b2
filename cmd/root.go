package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amodeus4/emailagent/internal/config"
	"github.com/amodeus4/emailagent/internal/logging"
)

var (
	// cfg and logger are set by the root command before any subcommand runs.
	cfg    *config.Config
	logger *slog.Logger

	envFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command for the emailagent application
var rootCmd = &cobra.Command{
	Use:   "emailagent",
	Short: "Conversational assistant for your mailbox",
	Long: `emailagent indexes your mail into a local full-text store and answers
questions about it through a language model that calls mailbox tools.

It can run as:
  - An interactive chat in the terminal (default)
  - An MCP (Model Context Protocol) server exposing the same tools`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}

		logger = logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: os.Stderr,
		})
		slog.SetDefault(logger)
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "emailagent version %s\n" .Version}}`)

	// Without a subcommand, start a chat.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
