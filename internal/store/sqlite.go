package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/logging"
)

// MemoryPath opens a private in-memory database. Used by tests and dry runs.
const MemoryPath = ":memory:"

// Store is the SQLite backed email index.
// It is safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records store operation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (or creates) the database at path and runs any pending schema
// migrations. Use MemoryPath for a throwaway database.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == MemoryPath {
		dsn = MemoryPath
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if path == MemoryPath {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	s := &Store{
		db:     db,
		logger: logging.WithComponent(slog.Default(), "store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection. Later calls fail with
// ErrUnavailable.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers queries.
func (s *Store) Ping(ctx context.Context) (err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationPing)
	defer func() { done(err) }()

	return unavailable("ping", s.db.PingContext(ctx))
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		s.logger.Debug("applied schema migration", slog.Int("version", m.version))
	}

	return nil
}

// begin starts the span for one store operation and returns the function
// that records its outcome.
func (s *Store) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartStoreSpan(ctx, op, attrs...)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		s.metrics.RecordStoreOperation(ctx, op, status, time.Since(start))
		instrumentation.EndSpan(span, err)
	}
}

// annotate adds attributes to the span carried by ctx.
func annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
