package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amodeus4/emailagent/internal/mailbox"
)

// FetchResult is the output of fetch_unread.
type FetchResult struct {
	Query  string            `json:"query"`
	Count  int               `json:"count"`
	Emails []mailbox.Summary `json:"emails"`
}

func fetchUnreadTool(deps Deps) Tool {
	def := mcp.NewTool(FetchUnread,
		mcp.WithDescription("Fetch emails directly from the mailbox. Defaults to unread messages in the inbox."),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of emails to fetch (default: 10)"),
		),
		mcp.WithString("query",
			mcp.Description("Mailbox search query, e.g. 'is:unread' or 'from:boss@company.com' (default: 'is:unread')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return Tool{
		Definition: def,
		Handler: func(ctx context.Context, p Params) (any, error) {
			return fetchUnread(ctx, deps.Mailbox, p)
		},
	}
}

func fetchUnread(ctx context.Context, mb mailbox.Mailbox, p Params) (*FetchResult, error) {
	max, err := p.Limit("max_results", defaultFetchResults, maxResults)
	if err != nil {
		return nil, err
	}
	query, err := p.String("query")
	if err != nil {
		return nil, err
	}
	if query == "" {
		query = mailbox.DefaultQuery
	}

	if mb == nil {
		return nil, upstream(FetchUnread, errors.New("no mailbox configured"))
	}

	ids, err := mb.List(ctx, query, max)
	if err != nil {
		return nil, upstream(FetchUnread, fmt.Errorf("listing messages: %w", err))
	}

	result := &FetchResult{Query: query, Emails: make([]mailbox.Summary, 0, len(ids))}
	for _, id := range ids {
		msg, err := mb.Fetch(ctx, id)
		if errors.Is(err, mailbox.ErrNotFound) {
			// Deleted between list and fetch.
			continue
		}
		if err != nil {
			return nil, upstream(FetchUnread, fmt.Errorf("fetching %s: %w", id, err))
		}
		result.Emails = append(result.Emails, mailbox.Summarize(msg))
	}
	result.Count = len(result.Emails)
	return result, nil
}
