package tools

import (
	"time"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/store"
)

// EmailResult is an indexed email as returned to the model.
type EmailResult struct {
	ID          string             `json:"id"`
	ThreadID    string             `json:"thread_id,omitempty"`
	Sender      string             `json:"sender"`
	Subject     string             `json:"subject"`
	Date        time.Time          `json:"date"`
	Labels      []string           `json:"labels,omitempty"`
	IsRead      bool               `json:"is_read"`
	Score       float64            `json:"score,omitempty"`
	Content     string             `json:"content"`
	Attachments []AttachmentResult `json:"attachments,omitempty"`
}

// AttachmentResult describes one attachment. Text is only filled in where
// the attachment matched a search.
type AttachmentResult struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Text      string `json:"text,omitempty"`
	Failed    bool   `json:"extraction_failed,omitempty"`
}

// SearchResult is the output of search_emails and search_attachments.
type SearchResult struct {
	Count  int           `json:"count"`
	Emails []EmailResult `json:"emails"`
}

func emailResult(d email.Document, includeAttachmentText bool) EmailResult {
	r := EmailResult{
		ID:       d.ID,
		ThreadID: d.ThreadID,
		Sender:   d.From(),
		Subject:  d.Subject,
		Date:     d.ReceivedAt,
		Labels:   d.Labels,
		IsRead:   d.IsRead,
		Content:  d.Context(includeAttachmentText),
	}
	for _, a := range d.Attachments {
		r.Attachments = append(r.Attachments, attachmentResult(a, false))
	}
	return r
}

func attachmentResult(a email.Attachment, withText bool) AttachmentResult {
	r := AttachmentResult{
		Filename:  a.Filename,
		MediaType: a.MediaType,
		Size:      a.Size,
		Failed:    a.ExtractionFailed,
	}
	if withText {
		r.Text = a.Text
	}
	return r
}

func hitResults(hits []store.Hit, includeAttachmentText bool) []EmailResult {
	results := make([]EmailResult, len(hits))
	for i, h := range hits {
		results[i] = emailResult(h.Document, includeAttachmentText)
		results[i].Score = h.Score
	}
	return results
}
