package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/logging"
)

const upsertEmail = `
	INSERT INTO emails (
		id, thread_id, sender, sender_name, recipients, cc,
		subject, body, snippet, received_at, labels, category,
		is_read, processing_errors, indexed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		thread_id = excluded.thread_id,
		sender = excluded.sender,
		sender_name = excluded.sender_name,
		recipients = excluded.recipients,
		cc = excluded.cc,
		subject = excluded.subject,
		body = excluded.body,
		snippet = excluded.snippet,
		received_at = excluded.received_at,
		labels = excluded.labels,
		category = excluded.category,
		is_read = excluded.is_read,
		processing_errors = excluded.processing_errors,
		indexed_at = excluded.indexed_at`

const insertAttachment = `
	INSERT INTO attachments (
		email_id, position, id, filename, media_type, size, text, path, extraction_failed
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Index inserts doc, or overwrites the stored document with the same id.
// Addresses may be given as header values such as "Carol <carol@z.com>";
// only the lower-cased address is stored. Attachments are replaced as a
// whole. Indexing the same document twice
// leaves the store as if it had been indexed once.
func (s *Store) Index(ctx context.Context, doc email.Document) (err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationIndex, attribute.String(instrumentation.SpanAttrEmailID, doc.ID))
	defer func() { done(err) }()

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	doc.Attachments = append([]email.Attachment(nil), doc.Attachments...)
	doc.Normalize()
	name, sender := email.ParseAddress(doc.Sender)
	doc.Sender = sender
	if doc.SenderName == "" {
		doc.SenderName = name
	}
	doc.Recipients = email.ParseAddressList(strings.Join(doc.Recipients, ", "))
	doc.CC = email.ParseAddressList(strings.Join(doc.CC, ", "))

	lists := make(map[string]string, 4)
	for name, list := range map[string][]string{
		"recipients":        doc.Recipients,
		"cc":                doc.CC,
		"labels":            doc.Labels,
		"processing_errors": doc.ProcessingErrors,
	} {
		encoded, err := encodeList(list)
		if err != nil {
			return fmt.Errorf("%w: encoding %s: %v", ErrInvalid, name, err)
		}
		lists[name] = encoded
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertEmail,
		doc.ID, doc.ThreadID, doc.Sender, doc.SenderName, lists["recipients"], lists["cc"],
		doc.Subject, doc.Body, doc.Snippet, doc.ReceivedAt.UnixNano(), lists["labels"], doc.Category,
		doc.IsRead, lists["processing_errors"], time.Now().UnixNano(),
	)
	if err != nil {
		return unavailable("upserting email "+doc.ID, err)
	}

	var docID int64
	if err := tx.GetContext(ctx, &docID, "SELECT doc_id FROM emails WHERE id = ?", doc.ID); err != nil {
		return unavailable("reading row id of "+doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM attachments WHERE email_id = ?", doc.ID); err != nil {
		return unavailable("clearing attachments of "+doc.ID, err)
	}
	for i, a := range doc.Attachments {
		_, err := tx.ExecContext(ctx, insertAttachment,
			doc.ID, i, a.ID, a.Filename, a.MediaType, a.Size, nullText(a), a.Path, a.ExtractionFailed,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("inserting attachment %d of %s", i, doc.ID), err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM email_fts WHERE rowid = ?", docID); err != nil {
		return unavailable("clearing search index of "+doc.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO email_fts (rowid, subject, body, attachments) VALUES (?, ?, ?, ?)",
		docID, doc.Subject, doc.Body, doc.AttachmentText(),
	)
	if err != nil {
		return unavailable("indexing text of "+doc.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing "+doc.ID, err)
	}

	s.logger.Debug("indexed email",
		logging.EmailID(doc.ID),
		logging.Correspondent(doc.Sender),
		"attachments", len(doc.Attachments))
	return nil
}

// UpdateMetadata applies patch to the labels of the document with id and
// returns the resulting label set.
func (s *Store) UpdateMetadata(ctx context.Context, id string, patch email.LabelPatch) (labels []string, err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationUpdate, attribute.String(instrumentation.SpanAttrEmailID, id))
	defer func() { done(err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	labels, err = applyLabels(ctx, tx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("committing labels of "+id, err)
	}
	return labels, nil
}

// LabelUpdate is the outcome of a label patch on one document of a batch.
type LabelUpdate struct {
	ID     string
	Labels []string

	// Err is set, wrapping ErrNotFound, when ID is not indexed.
	Err error
}

// UpdateMetadataBatch applies patch to every id in one transaction. Ids that
// are not indexed are reported in their LabelUpdate and do not stop the
// batch. Any other failure rolls back every id and is returned.
func (s *Store) UpdateMetadataBatch(ctx context.Context, ids []string, patch email.LabelPatch) (updates []LabelUpdate, err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationUpdate, attribute.Int(instrumentation.SpanAttrBatchSize, len(ids)))
	defer func() { done(err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	updates = make([]LabelUpdate, 0, len(ids))
	for _, id := range ids {
		labels, err := applyLabels(ctx, tx, id, patch)
		if errors.Is(err, ErrNotFound) {
			updates = append(updates, LabelUpdate{ID: id, Err: err})
			continue
		}
		if err != nil {
			return nil, err
		}
		updates = append(updates, LabelUpdate{ID: id, Labels: labels})
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("committing label batch", err)
	}
	return updates, nil
}

func applyLabels(ctx context.Context, tx *sqlx.Tx, id string, patch email.LabelPatch) ([]string, error) {
	var raw string
	err := tx.GetContext(ctx, &raw, "SELECT labels FROM emails WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, unavailable("reading labels of "+id, err)
	}

	current, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding labels of %s: %w", id, err)
	}

	labels := patch.Apply(current)
	encoded, err := encodeList(labels)
	if err != nil {
		return nil, fmt.Errorf("encoding labels of %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE emails SET labels = ? WHERE id = ?", encoded, id); err != nil {
		return nil, unavailable("updating labels of "+id, err)
	}
	return labels, nil
}

// Get returns the document with id.
func (s *Store) Get(ctx context.Context, id string) (doc *email.Document, err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationGet, attribute.String(instrumentation.SpanAttrEmailID, id))
	defer func() { done(err) }()

	var row emailRow
	err = s.db.GetContext(ctx, &row, "SELECT "+emailColumns+" FROM emails e WHERE e.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, unavailable("getting "+id, err)
	}

	docs, err := s.hydrate(ctx, []emailRow{row})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// Exists reports whether a document with id has been indexed.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM emails WHERE id = ?", id); err != nil {
		return false, unavailable("checking "+id, err)
	}
	return n > 0, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (n int, err error) {
	ctx, done := s.begin(ctx, instrumentation.OperationCount)
	defer func() { done(err) }()

	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM emails"); err != nil {
		return 0, unavailable("counting emails", err)
	}
	return n, nil
}

// hydrate converts rows to documents and loads their attachments in one query.
func (s *Store) hydrate(ctx context.Context, rows []emailRow) ([]email.Document, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	docs := make([]email.Document, len(rows))
	ids := make([]string, len(rows))
	byID := make(map[string]int, len(rows))
	for i, r := range rows {
		doc, err := r.document()
		if err != nil {
			return nil, err
		}
		docs[i] = doc
		ids[i] = r.ID
		byID[r.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT email_id, position, id, filename, media_type, size, text, path, extraction_failed
		FROM attachments
		WHERE email_id IN (?)
		ORDER BY email_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("building attachment query: %w", err)
	}

	var attachments []attachmentRow
	if err := s.db.SelectContext(ctx, &attachments, s.db.Rebind(query), args...); err != nil {
		return nil, unavailable("loading attachments", err)
	}
	for _, a := range attachments {
		i := byID[a.EmailID]
		docs[i].Attachments = append(docs[i].Attachments, a.attachment())
	}

	return docs, nil
}

// escapeLike escapes the LIKE wildcards in s for use with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
