package tools

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/mailbox"
	"github.com/amodeus4/emailagent/internal/store"
)

var testNow = time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, docs ...email.Document) *store.Store {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, d := range docs {
		require.NoError(t, s.Index(context.Background(), d))
	}
	return s
}

func newTestRegistry(t *testing.T, s Store, mb mailbox.Mailbox, opts ...Option) *Registry {
	t.Helper()
	r, err := New(Deps{Store: s, Mailbox: mb, Now: func() time.Time { return testNow }}, opts...)
	require.NoError(t, err)
	return r
}

func doc(id, sender, subject, body string, received time.Time, labels ...string) email.Document {
	return email.Document{
		ID:         id,
		ThreadID:   "t-" + id,
		Sender:     sender,
		Recipients: []string{"me@example.com"},
		Subject:    subject,
		Body:       body,
		ReceivedAt: received,
		Labels:     labels,
	}
}

func execute(t *testing.T, r *Registry, name string, params map[string]any, out any) error {
	t.Helper()
	res, err := r.Execute(context.Background(), Call{ID: "call-1", Name: name, Params: params})
	if err != nil {
		return err
	}
	require.NoError(t, json.Unmarshal([]byte(res), out))
	return nil
}

type fakeMailbox struct {
	mu       sync.Mutex
	messages map[string]*mailbox.Message
	order    []string
	listErr  error
	queries  []string
}

func newFakeMailbox(msgs ...*mailbox.Message) *fakeMailbox {
	f := &fakeMailbox{messages: make(map[string]*mailbox.Message)}
	for _, m := range msgs {
		f.messages[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeMailbox) List(_ context.Context, query string, max int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := append([]string(nil), f.order...)
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (f *fakeMailbox) Fetch(_ context.Context, id string) (*mailbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, mailbox.ErrNotFound
	}
	return m, nil
}

func (f *fakeMailbox) Attachment(_ context.Context, _ string, a mailbox.Attachment) ([]byte, error) {
	return a.Data, nil
}
