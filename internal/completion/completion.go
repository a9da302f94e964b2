// Package completion defines the completion provider the agent loop talks
// to and an OpenAI compatible implementation of it.
//
// A provider answers a request with either final text or exactly one tool
// call. The agent loop executes the call and asks again.
package completion

import (
	"context"
	"errors"
)

var (
	// ErrTimeout means the provider did not answer within the allotted wait.
	ErrTimeout = errors.New("completion timed out")

	// ErrMalformed means the provider answered with something that is
	// neither text nor a usable tool call.
	ErrMalformed = errors.New("malformed completion response")
)

// Role is the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the context sent to the provider.
type Message struct {
	Role    Role
	Content string

	// ToolCall is set on assistant messages that requested a tool.
	ToolCall *ToolCall

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string
}

// ToolCall is a request from the model to run a tool.
type ToolCall struct {
	ID     string
	Name   string
	Params map[string]any
}

// ToolSpec advertises a tool to the model. Parameters is a JSON schema.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  any
}

// Request is the full context of one completion call.
type Request struct {
	Messages []Message
	Tools    []ToolSpec
}

// Response is either Text or a ToolCall, never both.
type Response struct {
	Text     string
	ToolCall *ToolCall
}

// IsToolCall reports whether the model asked for a tool.
func (r Response) IsToolCall() bool {
	return r.ToolCall != nil
}

// Provider produces the next step of a conversation.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// timeoutError maps a context deadline to ErrTimeout, keeping the cause.
func timeoutError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
