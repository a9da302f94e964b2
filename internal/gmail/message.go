package gmail

import (
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/amodeus4/emailagent/internal/extract"
	"github.com/amodeus4/emailagent/internal/mailbox"
)

// ParseMessage converts a message fetched with format=full.
func ParseMessage(msg *gmail.Message) (*mailbox.Message, error) {
	if msg == nil || msg.Payload == nil {
		return nil, fmt.Errorf("message has no payload")
	}

	headers := make(map[string]string, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		name := strings.ToLower(h.Name)
		if _, seen := headers[name]; !seen {
			headers[name] = h.Value
		}
	}

	out := &mailbox.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     headers["from"],
		To:       headers["to"],
		Cc:       headers["cc"],
		Subject:  headers["subject"],
		Snippet:  html.UnescapeString(msg.Snippet),
		Labels:   msg.LabelIds,
		Date:     messageDate(msg.InternalDate, headers["date"]),
	}

	var plain, htmlBody string
	var walkErr error
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename != "" {
			out.Attachments = append(out.Attachments, attachmentOf(part))
			return
		}
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		mediaType := strings.ToLower(part.MimeType)
		switch {
		case plain == "" && strings.HasPrefix(mediaType, "text/plain"):
			b, err := decodeBase64(part.Body.Data)
			if err != nil {
				walkErr = err
				return
			}
			plain = string(b)
		case htmlBody == "" && strings.HasPrefix(mediaType, "text/html"):
			b, err := decodeBase64(part.Body.Data)
			if err != nil {
				walkErr = err
				return
			}
			htmlBody = string(b)
		}
	})
	if walkErr != nil {
		return nil, fmt.Errorf("decoding body of %s: %w", msg.Id, walkErr)
	}

	switch {
	case strings.TrimSpace(plain) != "":
		out.Body = plain
	case htmlBody != "":
		out.Body = extract.HTMLToText(htmlBody)
	}

	return out, nil
}

func attachmentOf(part *gmail.MessagePart) mailbox.Attachment {
	a := mailbox.Attachment{
		ID:        part.PartId,
		Filename:  part.Filename,
		MediaType: part.MimeType,
	}
	if part.Body == nil {
		return a
	}
	a.Size = part.Body.Size
	if part.Body.AttachmentId != "" {
		a.ID = part.Body.AttachmentId
	} else if part.Body.Data != "" {
		if data, err := decodeBase64(part.Body.Data); err == nil {
			a.Data = data
			a.Size = int64(len(data))
		}
	}
	return a
}

// messageDate prefers Gmail's internal timestamp over the Date header,
// which senders control.
func messageDate(internalMillis int64, header string) time.Time {
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis).UTC()
	}
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
