package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/amodeus4/emailagent/internal/google"
	"github.com/amodeus4/emailagent/internal/mailbox"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024

	// maxPageSize is the largest page the list endpoint returns.
	maxPageSize = 100

	userID = "me"
)

// Client wraps the Gmail Users service.
type Client struct {
	svc *gmail.UsersService
}

var _ mailbox.Mailbox = (*Client)(nil)

// NewClient creates a Gmail client authorized with the stored OAuth token.
func NewClient(ctx context.Context, cfg google.Config) (*Client, error) {
	httpClient, err := cfg.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", cfg.Account, err)
	}
	return NewClientWithHTTP(ctx, httpClient)
}

// NewClientWithHTTP creates a client that sends requests through httpClient.
// Extra options, such as option.WithEndpoint, are passed to the service.
func NewClientWithHTTP(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// List returns up to max message ids matching the Gmail search query,
// making multiple API calls if necessary.
func (c *Client) List(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	var ids []string
	pageToken := ""
	for {
		remaining := int64(max - len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List(userID).Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// Fetch retrieves a full message. Attachments stored out of line have no
// Data; use Attachment to download them.
func (c *Client) Fetch(ctx context.Context, id string) (*mailbox.Message, error) {
	msg, err := c.svc.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", mailbox.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return ParseMessage(msg)
}

// Attachment downloads the body of attachment a of message messageID.
func (c *Client) Attachment(ctx context.Context, messageID string, a mailbox.Attachment) ([]byte, error) {
	if a.Data != nil {
		return a.Data, nil
	}
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if a.ID == "" {
		return nil, fmt.Errorf("attachment %q has no id", a.Filename)
	}
	if a.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", a.Size, MaxAttachmentSize)
	}

	body, err := c.svc.Messages.Attachments.Get(userID, messageID, a.ID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", a.Filename, err)
	}
	if body.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
	}
	return decodeBase64(body.Data)
}

// decodeBase64 decodes Gmail body data. The API uses RFC 4648 base64url
// but padding is not always present.
func decodeBase64(data string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("failed to decode base64 body data")
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
