package imapmail

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodeus4/emailagent/internal/mailbox"
)

const multipartMessage = "From: Jane Doe <jane@example.com>\r\n" +
	"To: bob@example.com, Carol <carol@example.com>\r\n" +
	"Subject: Invoice for March\r\n" +
	"Date: Tue, 05 Mar 2024 10:30:00 +0100\r\n" +
	"Message-Id: <m2@example.com>\r\n" +
	"References: <m1@example.com> <m2-parent@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please find the invoice attached.\r\n" +
	"--b1\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.csv\"\r\n" +
	"\r\n" +
	"item,amount\r\nwidget,42\r\n" +
	"--b1--\r\n"

const htmlMessage = "From: news@example.com\r\n" +
	"Subject: Weekly\r\n" +
	"Message-Id: <solo@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Hello</p><p>World</p></body></html>\r\n"

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(multipartMessage))
	require.NoError(t, err)

	assert.Equal(t, `"Jane Doe" <jane@example.com>`, msg.From)
	assert.Contains(t, msg.To, "bob@example.com")
	assert.Contains(t, msg.To, "carol@example.com")
	assert.Equal(t, "Invoice for March", msg.Subject)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC), msg.Date)
	assert.Equal(t, "m1@example.com", msg.ThreadID)
	assert.Equal(t, "Please find the invoice attached.", strings.TrimSpace(msg.Body))
	assert.Equal(t, "Please find the invoice attached.", msg.Snippet)

	require.Len(t, msg.Attachments, 1)
	a := msg.Attachments[0]
	assert.Equal(t, "invoice.csv", a.Filename)
	assert.Equal(t, "text/csv", a.MediaType)
	assert.Contains(t, string(a.Data), "widget,42")
	assert.Equal(t, int64(len(a.Data)), a.Size)
}

func TestParseMessageHTMLOnly(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(htmlMessage))
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "Hello")
	assert.Contains(t, msg.Body, "World")
	assert.NotContains(t, msg.Body, "<p>")
	assert.Equal(t, "solo@example.com", msg.ThreadID)
	assert.Empty(t, msg.Attachments)
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  []string
	}{
		{"unseen", nil, []string{"INBOX", mailbox.LabelUnread}},
		{"seen", []string{imap.SeenFlag}, []string{"INBOX"}},
		{"seen and flagged", []string{imap.SeenFlag, imap.FlaggedFlag}, []string{"INBOX", mailbox.LabelStarred}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Labels("Inbox", tt.flags))
		})
	}
}

func TestMessageID(t *testing.T) {
	id := messageID("INBOX", 42)
	assert.Equal(t, "INBOX:42", id)

	uid, err := parseMessageID("INBOX", id)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), uid)

	for _, bad := range []string{"Archive:42", "INBOX:", "INBOX:abc", "INBOX:0", "18c2f0"} {
		_, err := parseMessageID("INBOX", bad)
		assert.ErrorIs(t, err, mailbox.ErrNotFound, bad)
	}
}
