package ingest

import (
	"strings"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/mailbox"
)

// Document converts a provider message to an index entry. Attachments are
// copied as metadata only; text is filled in by the ingester.
func Document(m *mailbox.Message) email.Document {
	name, sender := email.ParseAddress(m.From)

	doc := email.Document{
		ID:         m.ID,
		ThreadID:   m.ThreadID,
		Sender:     sender,
		SenderName: name,
		Recipients: email.ParseAddressList(m.To),
		CC:         email.ParseAddressList(m.Cc),
		Subject:    m.Subject,
		Body:       m.Body,
		Snippet:    m.Snippet,
		ReceivedAt: m.Date,
		Labels:     append([]string(nil), m.Labels...),
		Category:   Category(m.Labels),
		IsRead:     m.IsRead(),
	}
	if doc.Snippet == "" {
		doc.Snippet = mailbox.Snippet(m.Body, 200)
	}

	for _, a := range m.Attachments {
		doc.Attachments = append(doc.Attachments, email.Attachment{
			ID:        a.ID,
			Filename:  a.Filename,
			MediaType: a.MediaType,
			Size:      a.Size,
		})
	}
	return doc
}

// categoryPrefix marks the Gmail inbox tab labels, e.g. CATEGORY_PROMOTIONS.
const categoryPrefix = "CATEGORY_"

// Category returns the inbox tab of a message from its labels, lower-cased
// ("promotions", "social", "updates", "forums", "personal"), or "" when it
// has none.
func Category(labels []string) string {
	for _, l := range labels {
		if len(l) > len(categoryPrefix) && strings.EqualFold(l[:len(categoryPrefix)], categoryPrefix) {
			return strings.ToLower(l[len(categoryPrefix):])
		}
	}
	return ""
}
