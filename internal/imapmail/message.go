package imapmail

import (
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/amodeus4/emailagent/internal/extract"
	"github.com/amodeus4/emailagent/internal/mailbox"
)

const snippetLength = 200

// ParseMessage reads an RFC 5322 message. ID and Labels are left for the
// caller, which knows the UID and flags.
func ParseMessage(r io.Reader) (*mailbox.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	msg := &mailbox.Message{
		From:     formatAddresses(h, "From"),
		To:       formatAddresses(h, "To"),
		Cc:       formatAddresses(h, "Cc"),
		ThreadID: threadID(h),
	}
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		msg.Date = date.UTC()
	}

	var plain, html string
	for i := 0; ; i++ {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := ph.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read body part: %w", err)
			}
			switch {
			case plain == "" && strings.HasPrefix(ct, "text/plain"):
				plain = string(body)
			case html == "" && strings.HasPrefix(ct, "text/html"):
				html = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := ph.Filename()
			ct, _, _ := ph.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment %q: %w", filename, err)
			}
			msg.Attachments = append(msg.Attachments, mailbox.Attachment{
				ID:        fmt.Sprintf("part-%d", i),
				Filename:  filename,
				MediaType: ct,
				Size:      int64(len(data)),
				Data:      data,
			})
		}
	}

	switch {
	case strings.TrimSpace(plain) != "":
		msg.Body = plain
	case html != "":
		msg.Body = extract.HTMLToText(html)
	}
	msg.Snippet = mailbox.Snippet(msg.Body, snippetLength)

	return msg, nil
}

func formatAddresses(h mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		return h.Get(key)
	}
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.String()
	}
	return strings.Join(out, ", ")
}

// threadID is the first message id of the References chain, falling back
// to In-Reply-To and then the message's own id.
func threadID(h mail.Header) string {
	if refs, err := h.MsgIDList("References"); err == nil && len(refs) > 0 {
		return refs[0]
	}
	if parents, err := h.MsgIDList("In-Reply-To"); err == nil && len(parents) > 0 {
		return parents[0]
	}
	id, _ := h.MessageID()
	return id
}
