// Package imapmail implements mailbox.Mailbox for any IMAP server.
//
// Messages are read with BODY.PEEK so fetching never marks them as seen.
// Gmail search syntax is translated into IMAP SEARCH criteria for the
// common operators (is:unread, from:, subject:, after:, before:).
package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/amodeus4/emailagent/internal/mailbox"
)

// Config configures the IMAP connection.
type Config struct {
	// Server is host:port, e.g. imap.fastmail.com:993.
	Server   string
	Username string
	Password string

	// Mailbox defaults to INBOX.
	Mailbox string

	// Insecure dials without TLS. Only for local test servers.
	Insecure bool

	DialTimeout time.Duration
}

// Client is an IMAP mailbox. It holds one connection, opened on first use
// and shared by all calls.
type Client struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	client *client.Client
}

var _ mailbox.Mailbox = (*Client)(nil)

// NewClient creates a client. No connection is made until the first call.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: cfg,
		logger: logger.With("component", "imap", "server", cfg.Server),
	}
}

// connect must be called with c.mu held.
func (c *Client) connect() error {
	if c.client != nil {
		return nil
	}

	c.logger.Info("connecting to IMAP server")

	dialer := &net.Dialer{Timeout: c.config.DialTimeout}
	var (
		imapClient *client.Client
		err        error
	)
	if c.config.Insecure {
		imapClient, err = client.DialWithDialer(dialer, c.config.Server)
	} else {
		imapClient, err = client.DialWithDialerTLS(dialer, c.config.Server, &tls.Config{MinVersion: tls.VersionTLS12})
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := imapClient.Login(c.config.Username, c.config.Password); err != nil {
		_ = imapClient.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	if _, err := imapClient.Select(c.config.Mailbox, true); err != nil {
		_ = imapClient.Logout()
		return fmt.Errorf("failed to select %s: %w", c.config.Mailbox, err)
	}

	c.client = imapClient
	return nil
}

// drop discards a connection after an error so the next call reconnects.
// Must be called with c.mu held.
func (c *Client) drop() {
	if c.client != nil {
		_ = c.client.Terminate()
		c.client = nil
	}
}

// Close logs out.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	return err
}

// List returns up to max ids of messages matching query, highest UID first.
func (c *Client) List(ctx context.Context, query string, max int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if max <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return nil, err
	}

	uids, err := c.client.UidSearch(Criteria(query, time.Now()))
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if len(uids) > max {
		uids = uids[:max]
	}

	ids := make([]string, len(uids))
	for i, uid := range uids {
		ids[i] = messageID(c.config.Mailbox, uid)
	}
	return ids, nil
}

// Fetch retrieves and parses one message without setting \Seen.
func (c *Client) Fetch(ctx context.Context, id string) (*mailbox.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uid, err := parseMessageID(c.config.Mailbox, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var raw *imap.Message
	for msg := range messages {
		raw = msg
	}
	if err := <-done; err != nil {
		c.drop()
		return nil, fmt.Errorf("failed to fetch %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", mailbox.ErrNotFound, id)
	}

	body := raw.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("server returned no body for %s", id)
	}

	msg, err := ParseMessage(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", id, err)
	}
	msg.ID = id
	msg.Labels = Labels(c.config.Mailbox, raw.Flags)
	if msg.Date.IsZero() {
		msg.Date = raw.InternalDate.UTC()
	}
	return msg, nil
}

// Attachment returns the bytes already read by Fetch.
func (c *Client) Attachment(_ context.Context, messageID string, a mailbox.Attachment) ([]byte, error) {
	if a.Data == nil {
		return nil, fmt.Errorf("attachment %q of %s has no data", a.Filename, messageID)
	}
	return a.Data, nil
}

func messageID(mailboxName string, uid uint32) string {
	return mailboxName + ":" + strconv.FormatUint(uint64(uid), 10)
}

func parseMessageID(mailboxName, id string) (uint32, error) {
	prefix := mailboxName + ":"
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("%w: %s is not in mailbox %s", mailbox.ErrNotFound, id, mailboxName)
	}
	uid, err := strconv.ParseUint(strings.TrimPrefix(id, prefix), 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("%w: malformed id %s", mailbox.ErrNotFound, id)
	}
	return uint32(uid), nil
}

// Labels maps the mailbox name and IMAP flags onto Gmail style labels.
func Labels(mailboxName string, flags []string) []string {
	labels := []string{strings.ToUpper(mailboxName)}
	seen, flagged := false, false
	for _, f := range flags {
		switch f {
		case imap.SeenFlag:
			seen = true
		case imap.FlaggedFlag:
			flagged = true
		}
	}
	if !seen {
		labels = append(labels, mailbox.LabelUnread)
	}
	if flagged {
		labels = append(labels, mailbox.LabelStarred)
	}
	return labels
}
