package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/mailbox"
	"github.com/amodeus4/emailagent/internal/store"
	"github.com/amodeus4/emailagent/internal/tools/batch"
)

func resultIDs(emails []EmailResult) []string {
	ids := make([]string, len(emails))
	for i, e := range emails {
		ids[i] = e.ID
	}
	return ids
}

func TestFetchUnread(t *testing.T) {
	mb := newFakeMailbox(
		&mailbox.Message{ID: "g1", From: "Jane <jane@example.com>", Subject: "Lunch?", Labels: []string{"INBOX", "UNREAD"}, Date: testNow},
		&mailbox.Message{ID: "g2", From: "bob@example.com", Labels: []string{"INBOX"}, Date: testNow.Add(-time.Hour)},
		&mailbox.Message{ID: "g3", From: "carol@example.com", Subject: "Third", Date: testNow.Add(-2 * time.Hour)},
	)
	r := newTestRegistry(t, newTestStore(t), mb)

	var got FetchResult
	require.NoError(t, execute(t, r, FetchUnread, map[string]any{"max_results": float64(2)}, &got))

	assert.Equal(t, mailbox.DefaultQuery, got.Query)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Emails, 2)
	assert.Equal(t, "Lunch?", got.Emails[0].Subject)
	assert.False(t, got.Emails[0].IsRead)
	assert.Equal(t, "(No Subject)", got.Emails[1].Subject)
	assert.True(t, got.Emails[1].IsRead)

	require.NoError(t, execute(t, r, FetchUnread, map[string]any{"query": "from:carol@example.com"}, &got))
	assert.Equal(t, []string{mailbox.DefaultQuery, "from:carol@example.com"}, mb.queries)
}

func TestFetchUnreadFailures(t *testing.T) {
	t.Run("no mailbox", func(t *testing.T) {
		r := newTestRegistry(t, newTestStore(t), nil)
		_, err := r.Execute(context.Background(), Call{Name: FetchUnread})
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("list fails", func(t *testing.T) {
		mb := newFakeMailbox()
		mb.listErr = errors.New("401 unauthorized")
		r := newTestRegistry(t, newTestStore(t), mb)
		_, err := r.Execute(context.Background(), Call{Name: FetchUnread})
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("vanished message skipped", func(t *testing.T) {
		mb := newFakeMailbox(&mailbox.Message{ID: "g1", Subject: "kept"})
		mb.order = append(mb.order, "gone")
		r := newTestRegistry(t, newTestStore(t), mb)

		var got FetchResult
		require.NoError(t, execute(t, r, FetchUnread, nil, &got))
		assert.Equal(t, 1, got.Count)
	})
}

func TestSearchEmails(t *testing.T) {
	s := newTestStore(t,
		doc("m1", "billing@vendor.com", "Invoice March", "Your invoice is attached", testNow.AddDate(0, 0, -2), "INBOX", "IMPORTANT"),
		doc("m2", "billing@vendor.com", "Receipt", "Thanks for paying the invoice", testNow.AddDate(0, 0, -1), "INBOX"),
		doc("m3", "news@letters.io", "Weekly digest", "Nothing about bills", testNow.AddDate(0, 0, -20), "INBOX"),
		doc("m4", "jane@partner.org", "Contract", "Draft contract for review", testNow, "INBOX", "IMPORTANT", "STARRED"),
	)
	r := newTestRegistry(t, s, nil)

	tests := []struct {
		name   string
		params map[string]any
		want   []string
	}{
		{
			name:   "keywords rank subject matches first",
			params: map[string]any{"search_text": "invoice"},
			want:   []string{"m1", "m2"},
		},
		{
			name:   "no filters newest first",
			params: map[string]any{},
			want:   []string{"m4", "m2", "m1", "m3"},
		},
		{
			name:   "exact sender",
			params: map[string]any{"sender": "Billing@Vendor.com"},
			want:   []string{"m2", "m1"},
		},
		{
			name:   "sender prefix",
			params: map[string]any{"sender": "jane"},
			want:   []string{"m4"},
		},
		{
			name:   "relative date range",
			params: map[string]any{"date_from": "last week", "date_to": "yesterday"},
			want:   []string{"m2", "m1"},
		},
		{
			name:   "labels all required",
			params: map[string]any{"labels": []any{"important", "starred"}},
			want:   []string{"m4"},
		},
		{
			name:   "label as string",
			params: map[string]any{"labels": "IMPORTANT"},
			want:   []string{"m4", "m1"},
		},
		{
			name:   "max results",
			params: map[string]any{"max_results": float64(1)},
			want:   []string{"m4"},
		},
		{
			name:   "no match is empty",
			params: map[string]any{"search_text": "zeppelin"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SearchResult
			require.NoError(t, execute(t, r, SearchEmails, tt.params, &got))
			assert.Equal(t, tt.want, resultIDs(got.Emails))
			assert.Equal(t, len(tt.want), got.Count)
		})
	}

	t.Run("content rendered", func(t *testing.T) {
		var got SearchResult
		require.NoError(t, execute(t, r, SearchEmails, map[string]any{"search_text": "contract"}, &got))
		require.Len(t, got.Emails, 1)
		assert.Contains(t, got.Emails[0].Content, "Subject: Contract")
		assert.Positive(t, got.Emails[0].Score)
	})

	t.Run("text without words", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Call{Name: SearchEmails, Params: map[string]any{"search_text": "???"}})
		var pe *ParamsError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, pe.Invalid, "search_text")
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Call{Name: SearchEmails, Params: map[string]any{"date_from": "the other day"}})
		var pe *ParamsError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, SearchEmails, pe.Tool)
		assert.Contains(t, pe.Invalid, "date_from")
	})
}

func TestSearchEmailsFilters(t *testing.T) {
	read := doc("m1", "billing@vendor.com", "Invoice", "attached", testNow.AddDate(0, 0, -2), "INBOX")
	read.IsRead = true
	read.Recipients = []string{"accounts@example.com"}
	read.Attachments = []email.Attachment{{ID: "a1", Filename: "invoice.pdf", MediaType: "application/pdf"}}
	promo := doc("m2", "deals@shop.com", "Sale", "50% off", testNow.AddDate(0, 0, -1), "INBOX")
	promo.Category = "promotions"
	plain := doc("m3", "jane@partner.org", "Hello", "just saying hi", testNow, "INBOX")
	plain.CC = []string{"Accounts <accounts@example.com>"}

	r := newTestRegistry(t, newTestStore(t, read, promo, plain), nil)

	tests := []struct {
		name   string
		params map[string]any
		want   []string
	}{
		{"recipient", map[string]any{"recipient": "ACCOUNTS@example.com"}, []string{"m3", "m1"}},
		{"category", map[string]any{"category": "Promotions"}, []string{"m2"}},
		{"read", map[string]any{"is_read": true}, []string{"m1"}},
		{"unread as string", map[string]any{"is_read": "false"}, []string{"m3", "m2"}},
		{"with attachments", map[string]any{"has_attachments": true}, []string{"m1"}},
		{"without attachments", map[string]any{"has_attachments": false}, []string{"m3", "m2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SearchResult
			require.NoError(t, execute(t, r, SearchEmails, tt.params, &got))
			assert.Equal(t, tt.want, resultIDs(got.Emails))
		})
	}

	_, err := r.Execute(context.Background(), Call{Name: SearchEmails, Params: map[string]any{"is_read": "sometimes"}})
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestSearchEmailsStoreUnavailable(t *testing.T) {
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	r := newTestRegistry(t, s, nil)
	require.NoError(t, s.Close())

	_, err = r.Execute(context.Background(), Call{Name: SearchEmails, Params: map[string]any{"search_text": "x"}})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestUpdateLabels(t *testing.T) {
	s := newTestStore(t,
		doc("m1", "a@example.com", "One", "body", testNow, "INBOX", "UNREAD"),
		doc("m2", "b@example.com", "Two", "body", testNow, "INBOX"),
	)
	r := newTestRegistry(t, s, nil)

	var got batch.BatchResult
	require.NoError(t, execute(t, r, UpdateLabels, map[string]any{
		"email_ids":     []any{"m1", "missing", "m2"},
		"add_labels":    []any{"Follow-Up"},
		"remove_labels": "unread",
	}, &got))

	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Successful)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, batch.StatusError, got.Results[1].Status)
	assert.Contains(t, got.Results[1].Error, "not found")

	d, err := s.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"INBOX", "Follow-Up"}, d.Labels)

	// The new label is searchable.
	var found SearchResult
	require.NoError(t, execute(t, r, SearchEmails, map[string]any{"labels": "follow-up"}, &found))
	assert.ElementsMatch(t, []string{"m1", "m2"}, resultIDs(found.Emails))
}

// unavailableLabels fails every label batch as an unreachable store would.
type unavailableLabels struct {
	*store.Store
}

func (unavailableLabels) UpdateMetadataBatch(context.Context, []string, email.LabelPatch) ([]store.LabelUpdate, error) {
	return nil, fmt.Errorf("updating labels of bad: %w", store.ErrUnavailable)
}

func TestUpdateLabelsStoreFailure(t *testing.T) {
	s := newTestStore(t, doc("a", "a@example.com", "One", "body", testNow, "INBOX"))
	r := newTestRegistry(t, unavailableLabels{Store: s}, nil)

	out, err := r.Execute(context.Background(), Call{Name: UpdateLabels, Params: map[string]any{
		"email_ids":  []any{"a", "bad"},
		"add_labels": "Done",
	}})
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestUpdateLabelsBadParams(t *testing.T) {
	r := newTestRegistry(t, newTestStore(t), nil)

	tests := []struct {
		name   string
		params map[string]any
	}{
		{"no ids", map[string]any{"add_labels": "X"}},
		{"no labels", map[string]any{"email_ids": "m1"}},
		{"ids wrong type", map[string]any{"email_ids": 12.0, "add_labels": "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), Call{Name: UpdateLabels, Params: tt.params})
			assert.ErrorIs(t, err, ErrBadParams)
		})
	}
}

func TestConversationHistory(t *testing.T) {
	first := doc("m1", "jane@partner.org", "Proposal", "Here is the proposal", testNow.AddDate(0, 0, -3))
	first.ThreadID = "thread-a"
	reply := doc("m2", "me@example.com", "Re: Proposal", "Looks good", testNow.AddDate(0, 0, -2))
	reply.ThreadID = "thread-a"
	reply.Recipients = []string{"jane@partner.org"}
	cc := doc("m3", "boss@example.com", "Budget", "Jane in copy", testNow.AddDate(0, 0, -1))
	cc.ThreadID = ""
	cc.CC = []string{"Jane@Partner.org"}
	other := doc("m4", "someone@else.com", "Unrelated", "Not Jane", testNow)

	r := newTestRegistry(t, newTestStore(t, other, cc, reply, first), nil)

	var got HistoryResult
	require.NoError(t, execute(t, r, ConversationHistory, map[string]any{"email_address": "JANE@partner.org"}, &got))

	assert.Equal(t, "jane@partner.org", got.Correspondent)
	assert.Equal(t, 3, got.TotalEmails)
	assert.Equal(t, 2, got.ThreadCount)
	require.Len(t, got.Threads, 2)
	assert.Equal(t, "thread-a", got.Threads[0].ThreadID)
	assert.Equal(t, []string{"m1", "m2"}, resultIDs(got.Threads[0].Emails))
	assert.Equal(t, "m3", got.Threads[1].ThreadID)

	require.NoError(t, execute(t, r, ConversationHistory, map[string]any{
		"email_address": "jane@partner.org",
		"thread_id":     "thread-a",
	}, &got))
	assert.Equal(t, 2, got.TotalEmails)
	require.Len(t, got.Threads, 1)
	assert.Equal(t, []string{"m1", "m2"}, resultIDs(got.Threads[0].Emails))

	require.NoError(t, execute(t, r, ConversationHistory, map[string]any{
		"email_address": "someone@else.com",
		"thread_id":     "thread-a",
	}, &got))
	assert.Equal(t, 0, got.TotalEmails)

	_, err := r.Execute(context.Background(), Call{Name: ConversationHistory})
	var pe *ParamsError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"email_address"}, pe.Missing)
}

func TestSearchAttachments(t *testing.T) {
	withInvoice := doc("m1", "billing@vendor.com", "March statement", "See attached", testNow.AddDate(0, 0, -1))
	withInvoice.Attachments = []email.Attachment{
		{ID: "a1", Filename: "invoice.pdf", MediaType: "application/pdf", Size: 2048, Text: "Invoice 1001 total due 500 EUR"},
		{ID: "a2", Filename: "terms.pdf", MediaType: "application/pdf", Size: 1024, Text: "General terms and conditions"},
	}
	bodyOnly := doc("m2", "billing@vendor.com", "Invoice reminder", "Your invoice is overdue", testNow)
	broken := doc("m3", "scanner@office.com", "Scan", "scan attached", testNow)
	broken.Attachments = []email.Attachment{{ID: "a1", Filename: "scan.tiff", MediaType: "image/tiff", ExtractionFailed: true}}

	r := newTestRegistry(t, newTestStore(t, withInvoice, bodyOnly, broken), nil)

	var got SearchResult
	require.NoError(t, execute(t, r, SearchAttachments, map[string]any{"search_text": "invoice"}, &got))

	require.Equal(t, 1, got.Count)
	assert.Equal(t, "m1", got.Emails[0].ID)
	require.Len(t, got.Emails[0].Attachments, 1)
	assert.Equal(t, "invoice.pdf", got.Emails[0].Attachments[0].Filename)
	assert.Contains(t, got.Emails[0].Attachments[0].Text, "1001")

	require.NoError(t, execute(t, r, SearchAttachments, map[string]any{"search_text": "invoice", "date_from": "today"}, &got))
	assert.Equal(t, 0, got.Count)
	assert.NotNil(t, got.Emails)

	_, err := r.Execute(context.Background(), Call{Name: SearchAttachments, Params: map[string]any{"search_text": "!!!"}})
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestSearchAttachmentsFileType(t *testing.T) {
	m := doc("m1", "billing@vendor.com", "Statement", "See attached", testNow)
	m.Attachments = []email.Attachment{
		{ID: "a1", Filename: "invoice.pdf", MediaType: "application/pdf", Text: "Invoice 1001"},
		{ID: "a2", Filename: "invoice-lines.csv", MediaType: "text/csv", Text: "invoice,line,amount"},
	}
	other := doc("m2", "shop@store.com", "Order", "receipt attached", testNow.AddDate(0, 0, -1))
	other.Attachments = []email.Attachment{{ID: "a1", Filename: "receipt.pdf", MediaType: "application/pdf", Text: "Invoice 9"}}

	r := newTestRegistry(t, newTestStore(t, m, other), nil)

	var got SearchResult
	require.NoError(t, execute(t, r, SearchAttachments, map[string]any{"search_text": "invoice", "file_type": "csv"}, &got))
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "m1", got.Emails[0].ID)
	require.Len(t, got.Emails[0].Attachments, 1)
	assert.Equal(t, "invoice-lines.csv", got.Emails[0].Attachments[0].Filename)

	require.NoError(t, execute(t, r, SearchAttachments, map[string]any{"search_text": "invoice", "file_type": ".PDF"}, &got))
	assert.ElementsMatch(t, []string{"m1", "m2"}, resultIDs(got.Emails))
	for _, e := range got.Emails {
		require.Len(t, e.Attachments, 1)
		assert.Equal(t, "application/pdf", e.Attachments[0].MediaType)
	}
}

func TestSenderMatch(t *testing.T) {
	assert.Equal(t, store.SenderExact, senderMatch("jane@example.com"))
	assert.Equal(t, store.SenderPrefix, senderMatch("jane"))
	assert.Equal(t, store.SenderPrefix, senderMatch("jane@"))
	assert.Equal(t, store.SenderPrefix, senderMatch("Jane Doe"))
}
