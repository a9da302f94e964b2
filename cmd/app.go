package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/amodeus4/emailagent/internal/completion"
	"github.com/amodeus4/emailagent/internal/config"
	"github.com/amodeus4/emailagent/internal/gmail"
	"github.com/amodeus4/emailagent/internal/google"
	"github.com/amodeus4/emailagent/internal/imapmail"
	"github.com/amodeus4/emailagent/internal/ingest"
	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/logging"
	"github.com/amodeus4/emailagent/internal/mailbox"
	"github.com/amodeus4/emailagent/internal/store"
	"github.com/amodeus4/emailagent/internal/tools"
)

// app holds the components shared by the commands.
type app struct {
	instr    *instrumentation.Provider
	store    *store.Store
	mailbox  mailbox.Mailbox
	registry *tools.Registry
	closers  []func() error
}

// openApp builds the store, the mailbox and the tool registry. A mailbox that
// cannot be opened is logged and left nil when requireMailbox is false;
// fetch_unread then reports an upstream error.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, requireMailbox bool) (*app, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instr, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a := &app{instr: instr}
	a.closers = append(a.closers, func() error { return instr.Shutdown(context.Background()) })

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	a.store, err = store.Open(cfg.DBPath,
		store.WithMetrics(instr.Metrics()),
		store.WithLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	mb, closeMailbox, err := openMailbox(ctx, cfg, logger)
	switch {
	case err != nil && requireMailbox:
		_ = a.Close()
		return nil, err
	case err != nil:
		logger.Warn("mailbox unavailable, fetch_unread will fail", "provider", cfg.MailboxProvider, logging.Err(err))
	default:
		a.mailbox = mb
		if closeMailbox != nil {
			a.closers = append(a.closers, closeMailbox)
		}
	}

	a.registry, err = tools.New(tools.Deps{Store: a.store, Mailbox: a.mailbox},
		tools.WithTimeout(cfg.ToolTimeout),
		tools.WithMetrics(instr.Metrics()),
		tools.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
		tools.WithLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// openMailbox returns the configured mailbox and an optional close function.
func openMailbox(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mailbox.Mailbox, func() error, error) {
	switch cfg.MailboxProvider {
	case config.ProviderIMAP:
		if err := cfg.RequireIMAP(); err != nil {
			return nil, nil, err
		}
		c := imapmail.NewClient(imapmail.Config{
			Server:      cfg.IMAPServer(),
			Username:    cfg.IMAPUser,
			Password:    cfg.IMAPPassword,
			Mailbox:     cfg.IMAPMailbox,
			Insecure:    cfg.IMAPInsecure,
			DialTimeout: cfg.IMAPDialTimeout,
		}, logger)
		return c, c.Close, nil
	default:
		c, err := gmail.NewClient(ctx, googleConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
}

func googleConfig(cfg *config.Config) google.Config {
	return google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		TokenDir:     cfg.GoogleTokenDir,
		Account:      cfg.GoogleAccount,
	}
}

// completionProvider returns the OpenAI compatible provider.
func (a *app) completionProvider(cfg *config.Config, logger *slog.Logger) (completion.Provider, error) {
	if err := cfg.RequireCompletion(); err != nil {
		return nil, err
	}
	return completion.NewOpenAI(completion.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, completion.WithMetrics(a.instr.Metrics()), completion.WithLogger(logger)), nil
}

// ingester returns an ingester over the app's mailbox, with Redis dedup
// when configured.
func (a *app) ingester(cfg *config.Config, logger *slog.Logger) (*ingest.Ingester, error) {
	if a.mailbox == nil {
		return nil, errors.New("no mailbox configured")
	}
	opts := []ingest.Option{
		ingest.WithMetrics(a.instr.Metrics()),
		ingest.WithLogger(logger),
	}
	if cfg.DedupEnabled() {
		seen, err := ingest.NewRedisSeen(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, seen.Close)
		opts = append(opts, ingest.WithSeen(seen))
	}
	return ingest.New(a.mailbox, a.store, ingest.Config{
		Query:          cfg.IngestQuery,
		MaxEmails:      cfg.IngestMaxEmails,
		Workers:        cfg.IngestWorkers,
		AttachmentsDir: cfg.AttachmentsDir,
	}, opts...), nil
}

// Close releases everything openApp acquired, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
