package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/mailbox"
	"github.com/amodeus4/emailagent/internal/store"
)

// Tool names.
const (
	FetchUnread         = "fetch_unread"
	SearchEmails        = "search_emails"
	UpdateLabels        = "update_labels"
	ConversationHistory = "conversation_history"
	SearchAttachments   = "search_attachments"
)

// Result count bounds.
const (
	defaultFetchResults   = 10
	defaultSearchResults  = 10
	defaultHistoryResults = 100
	maxResults            = 500
)

// Store is the part of the email store the tools read and write.
type Store interface {
	Search(ctx context.Context, q store.Query) ([]store.Hit, error)
	Thread(ctx context.Context, correspondent string, limit int) ([]email.Document, error)
	UpdateMetadataBatch(ctx context.Context, ids []string, patch email.LabelPatch) ([]store.LabelUpdate, error)
}

// Deps are the backends the tools run against.
type Deps struct {
	Store Store

	// Mailbox backs fetch_unread. Without one the tool reports an
	// upstream failure.
	Mailbox mailbox.Mailbox

	// Now defaults to time.Now and anchors relative dates.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// New returns a registry holding the five email tools.
func New(deps Deps, opts ...Option) (*Registry, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("tools: store is required")
	}

	r := NewRegistry(opts...)
	for _, t := range []Tool{
		fetchUnreadTool(deps),
		searchEmailsTool(deps),
		updateLabelsTool(deps),
		conversationHistoryTool(deps),
		searchAttachmentsTool(deps),
	} {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
