// Package config loads emailagent settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Mailbox providers.
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

// Config is the application configuration.
type Config struct {
	// Store
	DBPath string `env:"DB_PATH" envDefault:"./data/emailagent.db"`

	// Mailbox
	MailboxProvider string `env:"MAILBOX_PROVIDER" envDefault:"gmail"`

	IMAPHost        string        `env:"IMAP_HOST"`
	IMAPPort        int           `env:"IMAP_PORT" envDefault:"993"`
	IMAPUser        string        `env:"IMAP_USER"`
	IMAPPassword    string        `env:"IMAP_PASSWORD"`
	IMAPMailbox     string        `env:"IMAP_MAILBOX" envDefault:"INBOX"`
	IMAPInsecure    bool          `env:"IMAP_INSECURE" envDefault:"false"`
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost"`
	GoogleTokenDir     string `env:"GOOGLE_TOKEN_DIR"`
	GoogleAccount      string `env:"GOOGLE_ACCOUNT" envDefault:"default"`

	// Completion
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Agent
	TurnBudget        int           `env:"AGENT_TURN_BUDGET" envDefault:"5"`
	CompletionTimeout time.Duration `env:"AGENT_COMPLETION_TIMEOUT" envDefault:"60s"`
	ToolTimeout       time.Duration `env:"AGENT_TOOL_TIMEOUT" envDefault:"30s"`

	// Ingest
	IngestWorkers   int    `env:"INGEST_WORKERS" envDefault:"4"`
	IngestMaxEmails int    `env:"INGEST_MAX_EMAILS" envDefault:"50"`
	IngestQuery     string `env:"INGEST_QUERY" envDefault:"in:inbox"`
	AttachmentsDir  string `env:"ATTACHMENTS_DIR" envDefault:"./data/attachments"`
	RedisURL        string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env files if present, then the environment. Variables already
// set in the environment win over .env values. Without files, ".env" is
// read. A missing file is skipped; a malformed one is an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable zero value.
func (c *Config) Validate() error {
	var errs []error

	switch c.MailboxProvider {
	case ProviderGmail, ProviderIMAP:
	default:
		errs = append(errs, fmt.Errorf("MAILBOX_PROVIDER must be %q or %q, got %q",
			ProviderGmail, ProviderIMAP, c.MailboxProvider))
	}
	if c.TurnBudget < 1 {
		errs = append(errs, fmt.Errorf("AGENT_TURN_BUDGET must be at least 1, got %d", c.TurnBudget))
	}
	if c.CompletionTimeout <= 0 {
		errs = append(errs, errors.New("AGENT_COMPLETION_TIMEOUT must be positive"))
	}
	if c.ToolTimeout <= 0 {
		errs = append(errs, errors.New("AGENT_TOOL_TIMEOUT must be positive"))
	}
	if c.IngestWorkers < 1 {
		errs = append(errs, fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", c.IngestWorkers))
	}
	if c.IngestMaxEmails < 0 {
		errs = append(errs, fmt.Errorf("INGEST_MAX_EMAILS must not be negative, got %d", c.IngestMaxEmails))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// IMAPServer returns host:port of the IMAP server.
func (c *Config) IMAPServer() string {
	return net.JoinHostPort(c.IMAPHost, strconv.Itoa(c.IMAPPort))
}

// RequireIMAP reports the IMAP settings that are missing.
func (c *Config) RequireIMAP() error {
	var missing []string
	if c.IMAPHost == "" {
		missing = append(missing, "IMAP_HOST")
	}
	if c.IMAPUser == "" {
		missing = append(missing, "IMAP_USER")
	}
	if c.IMAPPassword == "" {
		missing = append(missing, "IMAP_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("imap mailbox requires %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireCompletion reports a missing API key. Local OpenAI compatible
// servers set OPENAI_BASE_URL and may run without a key.
func (c *Config) RequireCompletion() error {
	if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		return errors.New("OPENAI_API_KEY is required unless OPENAI_BASE_URL points at a local server")
	}
	return nil
}

// DedupEnabled reports whether ingestion should skip ids already seen in Redis.
func (c *Config) DedupEnabled() bool {
	return c.RedisURL != ""
}
