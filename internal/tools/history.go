package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/store"
)

// HistoryResult is the output of conversation_history.
type HistoryResult struct {
	Correspondent string   `json:"correspondent"`
	TotalEmails   int      `json:"total_emails"`
	ThreadCount   int      `json:"thread_count"`
	Threads       []Thread `json:"threads"`
}

// Thread groups emails sharing a thread id, oldest first.
type Thread struct {
	ThreadID string        `json:"thread_id"`
	Emails   []EmailResult `json:"emails"`
}

func conversationHistoryTool(deps Deps) Tool {
	def := mcp.NewTool(ConversationHistory,
		mcp.WithDescription("Get every indexed email exchanged with one person or company, as sender, recipient or cc, "+
			"grouped into threads and ordered oldest first. Use for 'show me all communication with X'."),
		mcp.WithString("email_address",
			mcp.Required(),
			mcp.Description("Email address of the correspondent"),
		),
		mcp.WithString("thread_id",
			mcp.Description("Only return the emails of this conversation thread"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of emails (default: 100)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return Tool{
		Definition: def,
		Handler: func(ctx context.Context, p Params) (any, error) {
			return conversationHistory(ctx, deps.Store, p)
		},
	}
}

func conversationHistory(ctx context.Context, s Store, p Params) (*HistoryResult, error) {
	addr, err := p.String("email_address")
	if err != nil {
		return nil, err
	}
	limit, err := p.Limit("max_results", defaultHistoryResults, maxResults)
	if err != nil {
		return nil, err
	}

	threadID, err := p.String("thread_id")
	if err != nil {
		return nil, err
	}

	var docs []email.Document
	if threadID == "" {
		docs, err = s.Thread(ctx, addr, limit)
	} else {
		docs, err = threadHistory(ctx, s, addr, threadID, limit)
	}
	if err != nil {
		return nil, err
	}

	return &HistoryResult{
		Correspondent: email.NormalizeAddress(addr),
		TotalEmails:   len(docs),
		ThreadCount:   countThreads(docs),
		Threads:       groupThreads(docs),
	}, nil
}

// threadHistory returns the emails of one thread the correspondent took
// part in, oldest first.
func threadHistory(ctx context.Context, s Store, addr, threadID string, limit int) ([]email.Document, error) {
	if email.NormalizeAddress(addr) == "" {
		return nil, invalidParam("email_address", "must not be empty")
	}
	hits, err := s.Search(ctx, store.Query{Correspondent: addr, ThreadID: threadID, Limit: limit})
	if err != nil {
		return nil, err
	}
	// Search returns the newest first.
	docs := make([]email.Document, len(hits))
	for i, h := range hits {
		docs[len(hits)-1-i] = h.Document
	}
	return docs, nil
}

// groupThreads keeps the order of first appearance. Emails without a
// thread id form a thread of their own.
func groupThreads(docs []email.Document) []Thread {
	threads := []Thread{}
	index := make(map[string]int)

	for _, d := range docs {
		key := d.ThreadID
		if key == "" {
			key = d.ID
		}
		i, ok := index[key]
		if !ok {
			i = len(threads)
			index[key] = i
			threads = append(threads, Thread{ThreadID: key})
		}
		threads[i].Emails = append(threads[i].Emails, emailResult(d, false))
	}
	return threads
}

func countThreads(docs []email.Document) int {
	seen := make(map[string]bool)
	for _, d := range docs {
		key := d.ThreadID
		if key == "" {
			key = d.ID
		}
		seen[key] = true
	}
	return len(seen)
}
