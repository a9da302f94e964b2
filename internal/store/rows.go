package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amodeus4/emailagent/internal/email"
)

const emailColumns = `e.doc_id, e.id, e.thread_id, e.sender, e.sender_name, e.recipients, e.cc,
	e.subject, e.body, e.snippet, e.received_at, e.labels, e.category, e.is_read,
	e.processing_errors`

// emailRow mirrors the emails table. List columns hold JSON arrays.
type emailRow struct {
	DocID            int64   `db:"doc_id"`
	ID               string  `db:"id"`
	ThreadID         string  `db:"thread_id"`
	Sender           string  `db:"sender"`
	SenderName       string  `db:"sender_name"`
	Recipients       string  `db:"recipients"`
	CC               string  `db:"cc"`
	Subject          string  `db:"subject"`
	Body             string  `db:"body"`
	Snippet          string  `db:"snippet"`
	ReceivedAt       int64   `db:"received_at"`
	Labels           string  `db:"labels"`
	Category         string  `db:"category"`
	IsRead           bool    `db:"is_read"`
	ProcessingErrors string  `db:"processing_errors"`
	Score            float64 `db:"score"`
}

type attachmentRow struct {
	EmailID          string         `db:"email_id"`
	Position         int            `db:"position"`
	ID               string         `db:"id"`
	Filename         string         `db:"filename"`
	MediaType        string         `db:"media_type"`
	Size             int64          `db:"size"`
	Text             sql.NullString `db:"text"`
	Path             string         `db:"path"`
	ExtractionFailed bool           `db:"extraction_failed"`
}

func (r emailRow) document() (email.Document, error) {
	doc := email.Document{
		ID:         r.ID,
		ThreadID:   r.ThreadID,
		Sender:     r.Sender,
		SenderName: r.SenderName,
		Subject:    r.Subject,
		Body:       r.Body,
		Snippet:    r.Snippet,
		ReceivedAt: time.Unix(0, r.ReceivedAt).UTC(),
		Category:   r.Category,
		IsRead:     r.IsRead,
	}

	for _, field := range []struct {
		name string
		raw  string
		dst  *[]string
	}{
		{"recipients", r.Recipients, &doc.Recipients},
		{"cc", r.CC, &doc.CC},
		{"labels", r.Labels, &doc.Labels},
		{"processing_errors", r.ProcessingErrors, &doc.ProcessingErrors},
	} {
		list, err := decodeList(field.raw)
		if err != nil {
			return email.Document{}, fmt.Errorf("decoding %s of %s: %w", field.name, r.ID, err)
		}
		*field.dst = list
	}

	return doc, nil
}

func (r attachmentRow) attachment() email.Attachment {
	return email.Attachment{
		ID:               r.ID,
		Filename:         r.Filename,
		MediaType:        r.MediaType,
		Size:             r.Size,
		Text:             r.Text.String,
		Path:             r.Path,
		ExtractionFailed: r.ExtractionFailed,
	}
}

// encodeList stores a string list as a JSON array. Nil and empty both
// encode as "[]".
func encodeList(list []string) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList is the inverse of encodeList. An empty array decodes to nil.
func decodeList(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

func nullText(a email.Attachment) sql.NullString {
	if !a.HasText() {
		return sql.NullString{}
	}
	return sql.NullString{String: a.Text, Valid: true}
}
