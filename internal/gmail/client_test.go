package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/amodeus4/emailagent/internal/mailbox"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClientWithHTTP(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_ListPaginates(t *testing.T) {
	var queries []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages"))
		queries = append(queries, r.URL.Query().Get("q"))

		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, gmail.ListMessagesResponse{
				Messages:      []*gmail.Message{{Id: "a"}, {Id: "b"}},
				NextPageToken: "next",
			})
			return
		}
		writeJSON(w, gmail.ListMessagesResponse{
			Messages: []*gmail.Message{{Id: "c"}, {Id: "d"}},
		})
	}))

	ids, err := c.List(context.Background(), "is:unread", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []string{"is:unread", "is:unread"}, queries)

	ids, err = c.List(context.Background(), "is:unread", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestClient_FetchAndAttachment(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages/m1/attachments/att-1"):
			writeJSON(w, gmail.MessagePartBody{Data: b64("%PDF-1.4"), Size: 8})
		case strings.HasSuffix(r.URL.Path, "/messages/m1"):
			writeJSON(w, gmail.Message{
				Id: "m1",
				Payload: &gmail.MessagePart{
					MimeType: "multipart/mixed",
					Headers:  []*gmail.MessagePartHeader{{Name: "Subject", Value: "Docs"}},
					Parts: []*gmail.MessagePart{
						{Filename: "a.pdf", MimeType: "application/pdf", Body: &gmail.MessagePartBody{AttachmentId: "att-1", Size: 8}},
					},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/messages/missing"):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"Not Found"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	msg, err := c.Fetch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", msg.Subject)
	require.Len(t, msg.Attachments, 1)

	data, err := c.Attachment(ctx, "m1", msg.Attachments[0])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = c.Fetch(ctx, "missing")
	assert.ErrorIs(t, err, mailbox.ErrNotFound)
}

func TestClient_AttachmentLimits(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	data, err := c.Attachment(ctx, "m1", mailbox.Attachment{Data: []byte("inline")})
	require.NoError(t, err)
	assert.Equal(t, "inline", string(data))

	_, err = c.Attachment(ctx, "m1", mailbox.Attachment{ID: "a", Size: MaxAttachmentSize + 1})
	assert.Error(t, err)

	_, err = c.Attachment(ctx, "", mailbox.Attachment{ID: "a"})
	assert.Error(t, err)

	_, err = c.Attachment(ctx, "m1", mailbox.Attachment{Filename: "x.pdf"})
	assert.Error(t, err)
}
