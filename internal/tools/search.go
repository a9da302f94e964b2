package tools

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amodeus4/emailagent/internal/store"
)

func searchEmailsTool(deps Deps) Tool {
	def := mcp.NewTool(SearchEmails,
		mcp.WithDescription("Search indexed emails by keywords, sender, date range and labels. "+
			"Keywords match subject, body and attachment text; results are ranked by relevance, then recency."),
		mcp.WithString("search_text",
			mcp.Description("Keywords to look for in subject, body and attachments"),
		),
		mcp.WithString("sender",
			mcp.Description("Sender email address (exact match) or the beginning of an address or name"),
		),
		mcp.WithString("recipient",
			mcp.Description("Recipient email address (To or Cc)"),
		),
		mcp.WithString("category",
			mcp.Description("Inbox category, e.g. promotions, social, updates, forums or personal"),
		),
		mcp.WithString("date_from",
			mcp.Description("Start date: 'today', 'yesterday', 'last week', 'past 7 days', 'last month' or YYYY-MM-DD"),
		),
		mcp.WithString("date_to",
			mcp.Description("End date, inclusive. Same formats as date_from"),
		),
		mcp.WithArray("labels",
			mcp.Description("Labels every result must carry, e.g. IMPORTANT or STARRED"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("has_attachments",
			mcp.Description("true for emails with attachments, false for emails without"),
		),
		mcp.WithBoolean("is_read",
			mcp.Description("Filter by read status"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results (default: 10)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return Tool{
		Definition: def,
		Handler: func(ctx context.Context, p Params) (any, error) {
			return searchEmails(ctx, deps.Store, p, deps.now())
		},
	}
}

func searchEmails(ctx context.Context, s Store, p Params, now time.Time) (*SearchResult, error) {
	text, err := p.String("search_text")
	if err != nil {
		return nil, err
	}
	if text != "" && len(store.Terms(text)) == 0 {
		return nil, invalidParam("search_text", "must contain at least one word")
	}
	sender, err := p.String("sender")
	if err != nil {
		return nil, err
	}
	recipient, err := p.String("recipient")
	if err != nil {
		return nil, err
	}
	category, err := p.String("category")
	if err != nil {
		return nil, err
	}
	hasAttachments, err := p.OptionalBool("has_attachments")
	if err != nil {
		return nil, err
	}
	isRead, err := p.OptionalBool("is_read")
	if err != nil {
		return nil, err
	}
	from, to, err := dateRange(p, now)
	if err != nil {
		return nil, err
	}
	labels, err := p.Strings("labels")
	if err != nil {
		return nil, err
	}
	limit, err := p.Limit("max_results", defaultSearchResults, maxResults)
	if err != nil {
		return nil, err
	}

	q := store.Query{
		Text:           text,
		Sender:         sender,
		SenderMatch:    senderMatch(sender),
		Recipient:      recipient,
		Category:       category,
		IsRead:         isRead,
		HasAttachments: hasAttachments,
		From:           from,
		To:             to,
		Labels:         labels,
		Limit:          limit,
	}
	hits, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Count: len(hits), Emails: hitResults(hits, true)}, nil
}

// senderMatch uses exact matching for full addresses and prefix matching
// for anything else, such as a name or the start of an address.
func senderMatch(sender string) store.SenderMatch {
	if strings.Contains(sender, "@") && !strings.ContainsAny(sender, " \t") && !strings.HasSuffix(sender, "@") {
		return store.SenderExact
	}
	return store.SenderPrefix
}
