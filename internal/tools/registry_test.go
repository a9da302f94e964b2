package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/store"
)

func testTool(name string, h Handler, opts ...mcp.ToolOption) Tool {
	return Tool{Definition: mcp.NewTool(name, opts...), Handler: h}
}

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()
	ok := func(context.Context, Params) (any, error) { return nil, nil }

	require.NoError(t, r.Add(testTool("a", ok)))
	require.NoError(t, r.Add(testTool("b", ok)))

	assert.Error(t, r.Add(testTool("a", ok)), "duplicate")
	assert.Error(t, r.Add(testTool("", ok)), "nameless")
	assert.Error(t, r.Add(Tool{Definition: mcp.NewTool("c")}), "no handler")

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	require.Len(t, r.Catalogue(), 2)
	assert.Equal(t, "b", r.Catalogue()[1].Name)
}

func TestNewRegistersEmailTools(t *testing.T) {
	r := newTestRegistry(t, newTestStore(t), nil)

	assert.Equal(t, []string{FetchUnread, SearchEmails, UpdateLabels, ConversationHistory, SearchAttachments}, r.Names())

	for _, def := range r.Catalogue() {
		assert.NotEmpty(t, def.Description, def.Name)
		assert.Equal(t, "object", def.InputSchema.Type, def.Name)
	}

	tool, ok := r.Lookup(UpdateLabels)
	require.True(t, ok)
	assert.True(t, tool.Mutates)
	assert.Equal(t, []string{"email_ids"}, tool.Definition.InputSchema.Required)

	for _, name := range []string{FetchUnread, SearchEmails, ConversationHistory, SearchAttachments} {
		tool, _ := r.Lookup(name)
		assert.False(t, tool.Mutates, name)
	}

	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestExecuteErrors(t *testing.T) {
	r := NewRegistry(WithTimeout(50 * time.Millisecond))

	require.NoError(t, r.Add(testTool("needs_id", func(context.Context, Params) (any, error) {
		return "ok", nil
	}, mcp.WithString("id", mcp.Required()), mcp.WithString("other", mcp.Required()))))

	require.NoError(t, r.Add(testTool("slow", func(ctx context.Context, _ Params) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})))

	require.NoError(t, r.Add(testTool("stuck", func(context.Context, Params) (any, error) {
		time.Sleep(time.Second)
		return "late", nil
	})))

	require.NoError(t, r.Add(testTool("broken_store", func(context.Context, Params) (any, error) {
		return nil, errors.Join(store.ErrUnavailable, errors.New("database is closed"))
	})))

	require.NoError(t, r.Add(testTool("bad_range", func(context.Context, Params) (any, error) {
		return nil, store.ErrQueryInvalid
	})))

	require.NoError(t, r.Add(testTool("panics", func(context.Context, Params) (any, error) {
		panic("boom")
	})))

	tests := []struct {
		name    string
		call    Call
		wantErr error
		kind    string
	}{
		{"unknown tool", Call{Name: "drop_database"}, ErrUnknownTool, KindUnknownTool},
		{"missing params", Call{Name: "needs_id", Params: map[string]any{"id": "  "}}, ErrBadParams, KindBadParams},
		{"timeout honoured", Call{Name: "slow"}, ErrTimeout, KindTimeout},
		{"timeout ignored", Call{Name: "stuck"}, ErrTimeout, KindTimeout},
		{"store unavailable", Call{Name: "broken_store"}, ErrUpstream, KindUpstream},
		{"invalid query", Call{Name: "bad_range"}, ErrBadParams, KindBadParams},
		{"panic", Call{Name: "panics"}, ErrUpstream, KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, err := r.Execute(context.Background(), tt.call)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, Kind(err))
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}

	t.Run("missing params are listed", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Call{Name: "needs_id"})
		var pe *ParamsError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "needs_id", pe.Tool)
		assert.Equal(t, []string{"id", "other"}, pe.Missing)
		assert.Equal(t, []string{"id", "other"}, pe.Params())
	})

	t.Run("upstream keeps store cause", func(t *testing.T) {
		_, err := r.Execute(context.Background(), Call{Name: "broken_store"})
		assert.ErrorIs(t, err, store.ErrUnavailable)
	})
}

func TestExecuteOutputIsJSON(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(testTool("echo", func(_ context.Context, p Params) (any, error) {
		s, err := p.String("text")
		return map[string]string{"echo": s}, err
	})))

	out, err := r.Execute(context.Background(), Call{ID: "c1", Name: "echo", Params: map[string]any{"text": " hi "}})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "hi", got["echo"])
}

func TestExecuteAudit(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(
		slog.New(slog.NewJSONHandler(&buf, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true},
	)
	r := NewRegistry(WithAuditLogger(audit))
	require.NoError(t, r.Add(testTool("ok", func(context.Context, Params) (any, error) { return 1, nil })))

	_, err := r.Execute(context.Background(), Call{ID: "c7", Name: "ok", SessionID: "s1", Params: map[string]any{"q": "secret"}})
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), Call{ID: "c8", Name: "rm -rf"})
	require.Error(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "tool_executed", first["msg"])
	assert.Equal(t, "ok", first["tool"])
	assert.Equal(t, "c7", first["invocation_id"])
	assert.Equal(t, "s1", first["session_id"])
	assert.NotContains(t, string(lines[0]), "secret")

	assert.Equal(t, "tool_failed", second["msg"])
	assert.Equal(t, instrumentation.LabelOther, second["tool"])
	assert.Equal(t, KindUnknownTool, second["error_kind"])
}

func TestExecuteRunsToCompletionAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := NewRegistry(WithTimeout(5 * time.Second))
	require.NoError(t, r.Add(testTool("steps", func(tctx context.Context, _ Params) (any, error) {
		cancel()
		select {
		case <-tctx.Done():
			return nil, tctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
		return map[string]bool{"finished": tctx.Err() == nil}, nil
	})))

	out, err := r.Execute(ctx, Call{Name: "steps"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"finished": true}`, out)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestExecuteTimeoutAfterCancel(t *testing.T) {
	r := NewRegistry(WithTimeout(20 * time.Millisecond))
	require.NoError(t, r.Add(testTool("slow", func(ctx context.Context, _ Params) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Execute(ctx, Call{Name: "slow"})
	assert.ErrorIs(t, err, ErrTimeout)
}
