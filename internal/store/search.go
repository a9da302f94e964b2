package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/instrumentation"
)

// DefaultLimit bounds a search that does not set Query.Limit.
const DefaultLimit = 100

// SenderMatch selects how Query.Sender is compared.
type SenderMatch int

const (
	// SenderExact matches the full address, ignoring case.
	SenderExact SenderMatch = iota
	// SenderPrefix matches addresses or display names starting with Sender.
	SenderPrefix
)

// Query is a structured search over the index. Zero fields do not filter.
type Query struct {
	// Text is matched against subject, body and attachment text. Any term
	// may match; documents matching more terms, or matching in the subject,
	// rank higher.
	Text string

	Sender      string
	SenderMatch SenderMatch

	// Recipient matches an address in To or Cc, ignoring case.
	Recipient string

	// Correspondent matches an address in From, To or Cc, ignoring case.
	Correspondent string

	ThreadID string

	// Category matches the stored category, ignoring case.
	Category string

	IsRead         *bool
	HasAttachments *bool

	// FileType keeps documents with an attachment of that type, given as an
	// extension ("pdf", ".xlsx") or a media type fragment.
	FileType string

	// From and To bound the received time, both inclusive.
	From time.Time
	To   time.Time

	// Labels must all be present on a result.
	Labels []string

	// AttachmentsOnly restricts Text to attachment text. Without Text it
	// returns documents with at least one extracted attachment.
	AttachmentsOnly bool

	Limit int
}

// Validate reports ErrQueryInvalid for an inverted date range.
func (q Query) Validate() error {
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return fmt.Errorf("%w: start %s is after end %s", ErrQueryInvalid,
			q.From.Format(time.RFC3339), q.To.Format(time.RFC3339))
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrQueryInvalid, q.Limit)
	}
	return nil
}

// Hit is a search result.
type Hit struct {
	Document email.Document
	// Score is the relevance, higher is better. It is zero for queries
	// without Text.
	Score float64
}

// Search runs q and returns hits ordered by relevance, ties broken by most
// recently received. A query without Text orders by received time only.
// No match is an empty result, not an error.
func (s *Store) Search(ctx context.Context, q Query) (hits []Hit, err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationSearch)
	defer func() { done(err) }()

	if err := q.Validate(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	var (
		conditions []string
		args       []any
		query      string
	)

	match := matchExpression(q.Text, q.AttachmentsOnly)
	if match != "" {
		conditions = append(conditions, "email_fts MATCH ?")
		args = append(args, match)
	} else if q.AttachmentsOnly {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM attachments a
			WHERE a.email_id = e.id AND a.text IS NOT NULL AND a.text != '')`)
	}

	if q.Sender != "" {
		sender := strings.ToLower(strings.TrimSpace(q.Sender))
		switch q.SenderMatch {
		case SenderPrefix:
			conditions = append(conditions,
				`(lower(e.sender) LIKE ? ESCAPE '\' OR lower(e.sender_name) LIKE ? ESCAPE '\')`)
			pattern := escapeLike(sender) + "%"
			args = append(args, pattern, pattern)
		default:
			conditions = append(conditions, "e.sender = ?")
			args = append(args, sender)
		}
	}

	if addr := email.NormalizeAddress(q.Recipient); addr != "" {
		conditions = append(conditions, `(
			EXISTS (SELECT 1 FROM json_each(e.recipients) r WHERE lower(r.value) = ?)
			OR EXISTS (SELECT 1 FROM json_each(e.cc) c WHERE lower(c.value) = ?))`)
		args = append(args, addr, addr)
	}
	if addr := email.NormalizeAddress(q.Correspondent); addr != "" {
		conditions = append(conditions, `(e.sender = ?
			OR EXISTS (SELECT 1 FROM json_each(e.recipients) r WHERE lower(r.value) = ?)
			OR EXISTS (SELECT 1 FROM json_each(e.cc) c WHERE lower(c.value) = ?))`)
		args = append(args, addr, addr, addr)
	}
	if id := strings.TrimSpace(q.ThreadID); id != "" {
		conditions = append(conditions, "e.thread_id = ?")
		args = append(args, id)
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		conditions = append(conditions, "lower(e.category) = lower(?)")
		args = append(args, c)
	}
	if q.IsRead != nil {
		read := 0
		if *q.IsRead {
			read = 1
		}
		conditions = append(conditions, "e.is_read = ?")
		args = append(args, read)
	}
	if q.HasAttachments != nil {
		cond := "EXISTS (SELECT 1 FROM attachments a WHERE a.email_id = e.id)"
		if !*q.HasAttachments {
			cond = "NOT " + cond
		}
		conditions = append(conditions, cond)
	}
	if ft := FileType(q.FileType); ft != "" {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM attachments a
			WHERE a.email_id = e.id
				AND (lower(a.filename) LIKE ? ESCAPE '\' OR lower(a.media_type) LIKE ? ESCAPE '\'))`)
		args = append(args, "%."+escapeLike(ft), "%"+escapeLike(ft)+"%")
	}

	if !q.From.IsZero() {
		conditions = append(conditions, "e.received_at >= ?")
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		conditions = append(conditions, "e.received_at <= ?")
		args = append(args, q.To.UnixNano())
	}

	for _, label := range q.Labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(e.labels) l WHERE upper(l.value) = upper(?))")
		args = append(args, label)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	if match != "" {
		// bm25 is lower for better matches; columns weigh subject, body, attachments.
		query = "SELECT " + emailColumns + `, bm25(email_fts, 3.0, 2.0, 1.0) AS score
			FROM email_fts JOIN emails e ON e.doc_id = email_fts.rowid` + where + `
			ORDER BY score ASC, e.received_at DESC, e.id ASC
			LIMIT ?`
	} else {
		query = "SELECT " + emailColumns + ", 0.0 AS score FROM emails e" + where + `
			ORDER BY e.received_at DESC, e.id ASC
			LIMIT ?`
	}
	args = append(args, limit)

	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, unavailable("searching", err)
	}

	docs, err := s.hydrate(ctx, rows)
	if err != nil {
		return nil, err
	}

	hits = make([]Hit, len(docs))
	for i := range docs {
		hits[i] = Hit{Document: docs[i], Score: -rows[i].Score}
	}
	annotate(ctx, attribute.Int(instrumentation.SpanAttrResultCount, len(hits)))

	return hits, nil
}

// Thread returns every document the correspondent sent, received or was
// copied on, oldest first. A limit of zero or less returns all of them.
func (s *Store) Thread(ctx context.Context, correspondent string, limit int) (docs []email.Document, err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationThread)
	defer func() { done(err) }()

	addr := email.NormalizeAddress(correspondent)
	if addr == "" {
		return nil, fmt.Errorf("%w: empty correspondent", ErrQueryInvalid)
	}

	query := "SELECT " + emailColumns + ` FROM emails e
		WHERE e.sender = ?
			OR EXISTS (SELECT 1 FROM json_each(e.recipients) r WHERE lower(r.value) = ?)
			OR EXISTS (SELECT 1 FROM json_each(e.cc) c WHERE lower(c.value) = ?)
		ORDER BY e.received_at ASC, e.id ASC`
	args := []any{addr, addr, addr}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, unavailable("loading thread", err)
	}

	docs, err = s.hydrate(ctx, rows)
	if err != nil {
		return nil, err
	}
	annotate(ctx, attribute.Int(instrumentation.SpanAttrResultCount, len(docs)))
	return docs, nil
}

// FileType normalizes an attachment type filter to a lower-case extension
// without the leading dot.
func FileType(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
}

// MatchesFileType reports whether an attachment has the type ft, as
// returned by FileType.
func MatchesFileType(a email.Attachment, ft string) bool {
	if ft == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(a.Filename), "."+ft) ||
		strings.Contains(strings.ToLower(a.MediaType), ft)
}

// matchExpression turns free text into an FTS5 query. Every term is quoted
// so user input can never be read as query syntax. Terms are OR-ed; bm25
// ranks documents matching more of them first.
func matchExpression(text string, attachmentsOnly bool) string {
	terms := Terms(text)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	expr := strings.Join(quoted, " OR ")

	if attachmentsOnly {
		return "attachments : (" + expr + ")"
	}
	return expr
}

// Terms splits text into lower-cased search terms of letters and digits.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
