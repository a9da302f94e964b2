package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/extract"
	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/logging"
	"github.com/amodeus4/emailagent/internal/mailbox"
)

// Defaults for Config.
const (
	DefaultQuery     = "in:inbox"
	DefaultMaxEmails = 50
	DefaultWorkers   = 4
)

// Store is the part of the email store ingestion writes to.
type Store interface {
	Index(ctx context.Context, doc email.Document) error
}

// Config controls one ingestion run.
type Config struct {
	// Query selects messages in the mailbox's search syntax.
	Query string

	// MaxEmails caps how many messages are listed.
	MaxEmails int

	// Workers is the number of messages processed at once.
	Workers int

	// AttachmentsDir receives the bytes of relevant attachments. Empty
	// disables saving.
	AttachmentsDir string
}

// Report summarizes a run.
type Report struct {
	Listed  int
	Indexed int
	Skipped int
	Failed  int

	// Errors holds one entry per failed message.
	Errors []error
}

// Ingester moves messages from a mailbox into the store.
type Ingester struct {
	mailbox   mailbox.Mailbox
	store     Store
	extractor extract.Extractor
	seen      Seen
	config    Config
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithExtractor replaces the default attachment extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(i *Ingester) { i.extractor = e }
}

// WithSeen skips messages the filter has already seen.
func WithSeen(s Seen) Option {
	return func(i *Ingester) { i.seen = s }
}

// WithMetrics records the result of each message.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(i *Ingester) { i.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) { i.logger = logger }
}

// WithClock sets the time source used for attachment filenames.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.now = now }
}

// New creates an Ingester.
func New(mb mailbox.Mailbox, st Store, cfg Config, opts ...Option) *Ingester {
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = DefaultMaxEmails
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	i := &Ingester{
		mailbox:   mb,
		store:     st,
		extractor: extract.New(),
		config:    cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.WithComponent(i.logger, "ingest")
	return i
}

// Run lists messages and ingests each one. The returned error is non-nil
// only when listing fails or ctx is cancelled; per-message failures are in
// the report.
func (i *Ingester) Run(ctx context.Context) (Report, error) {
	ids, err := i.mailbox.List(ctx, i.config.Query, i.config.MaxEmails)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list messages: %w", err)
	}
	i.logger.Info("ingesting messages", "query", i.config.Query, "count", len(ids))

	report := Report{Listed: len(ids)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.config.Workers)
	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := i.Message(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch result {
			case instrumentation.IngestIndexed:
				report.Indexed++
			case instrumentation.IngestSkipped:
				report.Skipped++
			default:
				report.Failed++
				report.Errors = append(report.Errors, fmt.Errorf("message %s: %w", id, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	i.logger.Info("ingestion finished",
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// Message ingests one message and returns its ingest result.
func (i *Ingester) Message(ctx context.Context, id string) (result string, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "ingest.message",
		attribute.String(instrumentation.SpanAttrEmailID, id))
	defer func() {
		i.metrics.RecordIngestDocument(ctx, result)
		instrumentation.EndSpan(span, err)
	}()

	if i.seen != nil {
		fresh, err := i.seen.IsNew(ctx, id)
		if err != nil {
			// The filter is an optimization; carry on without it.
			i.logger.Warn("dedup check failed", logging.EmailID(id), logging.Err(err))
		} else if !fresh {
			return instrumentation.IngestSkipped, nil
		}
	}

	if err := i.index(ctx, id); err != nil {
		if i.seen != nil {
			if ferr := i.seen.Forget(ctx, id); ferr != nil {
				i.logger.Warn("failed to clear dedup entry", logging.EmailID(id), logging.Err(ferr))
			}
		}
		i.logger.Warn("failed to ingest message", logging.EmailID(id), logging.Err(err))
		return instrumentation.IngestFailed, err
	}
	return instrumentation.IngestIndexed, nil
}

func (i *Ingester) index(ctx context.Context, id string) error {
	msg, err := i.mailbox.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	doc := Document(msg)
	for n, a := range msg.Attachments {
		i.attachment(ctx, msg.ID, a, &doc, n)
	}

	if err := i.store.Index(ctx, doc); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	i.logger.Debug("message indexed",
		logging.EmailID(doc.ID),
		logging.Domain(doc.Sender),
		slog.Int("attachments", len(doc.Attachments)))
	return nil
}

// attachment fills in the text of doc.Attachments[n]. Failures are recorded
// on the attachment and the document, never returned.
func (i *Ingester) attachment(ctx context.Context, msgID string, a mailbox.Attachment, doc *email.Document, n int) {
	if !extract.IsRelevant(a.Filename, a.MediaType) {
		return
	}
	out := &doc.Attachments[n]

	fail := func(err error) {
		out.ExtractionFailed = true
		out.Text = ""
		doc.ProcessingErrors = append(doc.ProcessingErrors, fmt.Sprintf("attachment %s: %v", a.Filename, err))
		i.logger.Info("attachment not extracted",
			logging.EmailID(msgID),
			slog.String("filename", a.Filename),
			logging.Err(err))
	}

	data := a.Data
	if len(data) == 0 {
		var err error
		data, err = i.mailbox.Attachment(ctx, msgID, a)
		if err != nil {
			fail(fmt.Errorf("download: %w", err))
			return
		}
	}
	if out.Size == 0 {
		out.Size = int64(len(data))
	}

	if i.config.AttachmentsDir != "" {
		path, err := saveAttachment(i.config.AttachmentsDir, msgID, n, a.Filename, data, i.now())
		if err != nil {
			doc.ProcessingErrors = append(doc.ProcessingErrors, fmt.Sprintf("attachment %s: %v", a.Filename, err))
		} else {
			out.Path = path
		}
	}

	text, err := i.extractor.Extract(data, a.MediaType, a.Filename)
	if err != nil {
		if !errors.Is(err, extract.ErrUnsupported) && !errors.Is(err, extract.ErrCorrupt) {
			err = fmt.Errorf("%w: %w", extract.ErrCorrupt, err)
		}
		fail(err)
		return
	}
	out.Text = text
}
