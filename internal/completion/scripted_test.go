package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted(t *testing.T) {
	boom := errors.New("boom")
	p := NewScripted(
		Call("c1", "fetch_unread", nil),
		Fail(boom),
		Text("done"),
	)
	ctx := context.Background()

	r, err := p.Complete(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "1"}}})
	require.NoError(t, err)
	assert.Equal(t, "fetch_unread", r.ToolCall.Name)

	_, err = p.Complete(ctx, Request{})
	assert.ErrorIs(t, err, boom)

	r, err = p.Complete(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "done", r.Text)
	assert.Equal(t, 0, p.Remaining())

	_, err = p.Complete(ctx, Request{})
	assert.Error(t, err)

	reqs := p.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "1", reqs[0].Messages[0].Content)
}

func TestScriptedDeadline(t *testing.T) {
	p := NewScripted(Text("never"))

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	_, err := p.Complete(ctx, Request{})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, p.Remaining())
}

func TestFunc(t *testing.T) {
	var p Provider = Func(func(context.Context, Request) (Response, error) {
		return Response{Text: "ok"}, nil
	})
	r, err := p.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Text)
}
