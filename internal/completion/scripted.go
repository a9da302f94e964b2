package completion

import (
	"context"
	"fmt"
	"sync"
)

// Step is one scripted answer. Err, when set, is returned instead of Response.
type Step struct {
	Response Response
	Err      error
}

// Text is a scripted final answer.
func Text(s string) Step {
	return Step{Response: Response{Text: s}}
}

// Call is a scripted tool call.
func Call(id, name string, params map[string]any) Step {
	return Step{Response: Response{ToolCall: &ToolCall{ID: id, Name: name, Params: params}}}
}

// Fail is a scripted provider error.
func Fail(err error) Step {
	return Step{Err: err}
}

// Scripted replays a fixed sequence of steps and records every request.
// It is used to drive the agent loop without a model.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

var _ Provider = (*Scripted)(nil)

// NewScripted returns a provider that answers with steps in order.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Complete returns the next step. Running past the script is an error.
func (s *Scripted) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, timeoutError(ctx, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return Response{}, fmt.Errorf("scripted provider exhausted after %d requests", len(s.requests))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Response, step.Err
}

// Requests returns the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining returns the number of unused steps.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
