package tools

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/store"
)

func searchAttachmentsTool(deps Deps) Tool {
	def := mcp.NewTool(SearchAttachments,
		mcp.WithDescription("Search the text extracted from email attachments (PDFs, documents, spreadsheets). "+
			"Each result lists only the attachments that mention the search text."),
		mcp.WithString("search_text",
			mcp.Required(),
			mcp.Description("Keywords to look for in attachment content"),
		),
		mcp.WithString("file_type",
			mcp.Description("Attachment type: pdf, docx, xlsx, csv, etc."),
		),
		mcp.WithString("sender",
			mcp.Description("Sender email address (exact match) or the beginning of an address or name"),
		),
		mcp.WithString("date_from",
			mcp.Description("Start date: 'today', 'last week', 'past month' or YYYY-MM-DD"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of emails (default: 10)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return Tool{
		Definition: def,
		Handler: func(ctx context.Context, p Params) (any, error) {
			return searchAttachments(ctx, deps.Store, p, deps.now())
		},
	}
}

func searchAttachments(ctx context.Context, s Store, p Params, now time.Time) (*SearchResult, error) {
	text, err := p.String("search_text")
	if err != nil {
		return nil, err
	}
	if len(store.Terms(text)) == 0 {
		return nil, invalidParam("search_text", "must contain at least one word")
	}
	fileType, err := p.String("file_type")
	if err != nil {
		return nil, err
	}
	sender, err := p.String("sender")
	if err != nil {
		return nil, err
	}
	from, _, err := dateRange(p, now)
	if err != nil {
		return nil, err
	}
	limit, err := p.Limit("max_results", defaultSearchResults, maxResults)
	if err != nil {
		return nil, err
	}

	hits, err := s.Search(ctx, store.Query{
		Text:            text,
		Sender:          sender,
		SenderMatch:     senderMatch(sender),
		From:            from,
		FileType:        fileType,
		AttachmentsOnly: true,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}

	terms := store.Terms(text)
	ft := store.FileType(fileType)
	result := &SearchResult{Emails: []EmailResult{}}
	for _, h := range hits {
		matching := matchingAttachments(h.Document.Attachments, terms, ft)
		if len(matching) == 0 {
			// Matched through stemming only; nothing literal to show.
			continue
		}
		r := emailResult(h.Document, false)
		r.Score = h.Score
		r.Attachments = matching
		result.Emails = append(result.Emails, r)
	}
	result.Count = len(result.Emails)
	return result, nil
}

// matchingAttachments returns the attachments of type ft whose text
// contains any term. An empty ft accepts every type.
func matchingAttachments(atts []email.Attachment, terms []string, ft string) []AttachmentResult {
	var out []AttachmentResult
	for _, a := range atts {
		if !a.HasText() || !store.MatchesFileType(a, ft) {
			continue
		}
		text := strings.ToLower(a.Text)
		for _, t := range terms {
			if strings.Contains(text, t) {
				out = append(out, attachmentResult(a, true))
				break
			}
		}
	}
	return out
}
