package email

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxContextBodyLength is the body length rendered by Context before truncation.
	MaxContextBodyLength = 1000

	// MaxContextAttachmentLength is the attachment text length rendered by Context.
	MaxContextAttachmentLength = 1000

	// MaxStoredTextLength caps the extracted attachment text kept in the index.
	MaxStoredTextLength = 2000

	truncatedMarker = "\n[... truncated ...]"
)

// Attachment is a file attached to a Document.
type Attachment struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`

	// Text holds the extracted text. It is empty when ExtractionFailed is set.
	Text string `json:"text,omitempty"`

	// Path is where the raw bytes were saved, if they were saved at all.
	Path string `json:"path,omitempty"`

	ExtractionFailed bool `json:"extraction_failed,omitempty"`
}

// HasText reports whether the attachment carries extracted text.
func (a Attachment) HasText() bool {
	return !a.ExtractionFailed && a.Text != ""
}

// Document is a single indexed message.
type Document struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	CC         []string  `json:"cc,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels,omitempty"`
	Category   string    `json:"category,omitempty"`
	IsRead     bool      `json:"is_read"`

	Attachments      []Attachment `json:"attachments,omitempty"`
	ProcessingErrors []string     `json:"processing_errors,omitempty"`
}

// Validate checks the fields an index entry cannot do without.
func (d *Document) Validate() error {
	var missing []string
	if strings.TrimSpace(d.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(d.Sender) == "" {
		missing = append(missing, "sender")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Normalize enforces the attachment invariants and deduplicates labels.
// A failed extraction never keeps text, and stored text is capped.
func (d *Document) Normalize() {
	for i := range d.Attachments {
		a := &d.Attachments[i]
		if a.ExtractionFailed {
			a.Text = ""
		}
		if len(a.Text) > MaxStoredTextLength {
			a.Text = truncateRunes(a.Text, MaxStoredTextLength)
		}
	}
	d.Labels = uniqueLabels(d.Labels)
}

// HasLabel reports whether the document carries the label.
func (d *Document) HasLabel(label string) bool {
	for _, l := range d.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// AttachmentText joins the extracted text of all attachments.
func (d *Document) AttachmentText() string {
	var parts []string
	for _, a := range d.Attachments {
		if a.HasText() {
			parts = append(parts, a.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// From renders the sender the way a mail client would.
func (d *Document) From() string {
	if d.SenderName == "" || d.SenderName == d.Sender {
		return d.Sender
	}
	return fmt.Sprintf("%s <%s>", d.SenderName, d.Sender)
}

// Context formats the document for the completion provider.
func (d *Document) Context(includeAttachments bool) string {
	var sb strings.Builder

	body := d.Body
	if len([]rune(body)) > MaxContextBodyLength {
		body = truncateRunes(body, MaxContextBodyLength) + truncatedMarker
	}

	fmt.Fprintf(&sb, "Subject: %s\n", d.Subject)
	fmt.Fprintf(&sb, "From: %s\n", d.From())
	fmt.Fprintf(&sb, "Date: %s\n", d.ReceivedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Body: %s\n", body)
	fmt.Fprintf(&sb, "Attachments: %d file(s)", len(d.Attachments))

	if !includeAttachments {
		return sb.String()
	}

	var sections []string
	for _, a := range d.Attachments {
		if !a.HasText() {
			continue
		}
		sections = append(sections, fmt.Sprintf("\n--- Attachment: %s ---\n%s",
			a.Filename, truncateRunes(a.Text, MaxContextAttachmentLength)))
	}
	if len(sections) > 0 {
		sb.WriteString("\n\n## Attachment Content:\n")
		sb.WriteString(strings.Join(sections, "\n"))
	}

	return sb.String()
}

// LabelPatch adds and removes labels on a stored document.
type LabelPatch struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p LabelPatch) IsEmpty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0
}

// Apply returns the label set after the patch. Removals run first, so a
// label named in both lists ends up present.
func (p LabelPatch) Apply(labels []string) []string {
	remove := make(map[string]bool, len(p.Remove))
	for _, l := range p.Remove {
		remove[strings.ToUpper(strings.TrimSpace(l))] = true
	}

	out := make([]string, 0, len(labels)+len(p.Add))
	for _, l := range labels {
		if remove[strings.ToUpper(l)] {
			continue
		}
		out = append(out, l)
	}
	out = append(out, p.Add...)

	return uniqueLabels(out)
}

func uniqueLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToUpper(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
