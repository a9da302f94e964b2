// Package mailbox defines the pull-only view of a remote mailbox that
// ingestion and the fetch_unread tool read from. Implementations live in
// internal/gmail and internal/imapmail.
package mailbox

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultQuery selects the messages fetch_unread looks at.
const DefaultQuery = "is:unread"

// Well known labels. IMAP flags are mapped onto the same names.
const (
	LabelInbox   = "INBOX"
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
)

// ErrNotFound means the provider has no message with the requested id.
var ErrNotFound = errors.New("message not found")

// Mailbox lists and fetches messages. It never modifies the remote mailbox.
type Mailbox interface {
	// List returns up to max message ids matching query, newest first.
	// The query uses Gmail search syntax; other providers support a subset.
	List(ctx context.Context, query string, max int) ([]string, error)

	// Fetch returns the full message. Attachment bytes may be left empty and
	// loaded later with Attachment.
	Fetch(ctx context.Context, id string) (*Message, error)

	// Attachment returns the bytes of an attachment of message id.
	Attachment(ctx context.Context, messageID string, a Attachment) ([]byte, error)
}

// Message is a message as the provider returns it, before indexing.
type Message struct {
	ID       string
	ThreadID string

	// From, To and Cc are raw header values, e.g. `Jane <jane@x.com>, bob@y.com`.
	From string
	To   string
	Cc   string

	Subject string
	Date    time.Time
	Snippet string

	// Body is plain text. HTML-only messages are converted.
	Body string

	Labels      []string
	Attachments []Attachment
}

// IsRead reports whether the message lacks the UNREAD label.
func (m *Message) IsRead() bool {
	for _, l := range m.Labels {
		if strings.EqualFold(l, LabelUnread) {
			return false
		}
	}
	return true
}

// Attachment is an attachment of a Message.
type Attachment struct {
	// ID is the provider's attachment id, or the part index.
	ID        string
	Filename  string
	MediaType string
	Size      int64

	// Data holds the bytes when the provider delivered them inline.
	Data []byte
}

// Summary is the short form of a message returned by fetch_unread.
type Summary struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id,omitempty"`
	Sender   string    `json:"sender"`
	Subject  string    `json:"subject"`
	Date     time.Time `json:"date"`
	Snippet  string    `json:"snippet,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	IsRead   bool      `json:"is_read"`
}

// Summarize returns the Summary of m. A missing subject reads "(No Subject)".
func Summarize(m *Message) Summary {
	subject := m.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "(No Subject)"
	}
	return Summary{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Sender:   m.From,
		Subject:  subject,
		Date:     m.Date,
		Snippet:  m.Snippet,
		Labels:   m.Labels,
		IsRead:   m.IsRead(),
	}
}

// Snippet returns the first n runes of body with whitespace collapsed.
func Snippet(body string, n int) string {
	s := strings.Join(strings.Fields(body), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
