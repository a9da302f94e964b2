package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/store"
)

// DefaultTimeout bounds a single tool execution.
const DefaultTimeout = 30 * time.Second

// Handler runs a tool. The returned value is encoded as JSON for the model.
type Handler func(ctx context.Context, p Params) (any, error)

// Tool is one registry entry.
type Tool struct {
	Definition mcp.Tool
	Handler    Handler

	// Mutates is set for tools that change stored state.
	Mutates bool
}

// Name returns the tool's stable name.
func (t Tool) Name() string {
	return t.Definition.Name
}

// Call is one invocation request.
type Call struct {
	// ID is unique within the session.
	ID        string
	Name      string
	Params    map[string]any
	SessionID string
}

// Registry dispatches calls by name. It is safe for concurrent use once
// all tools are added.
type Registry struct {
	tools   map[string]Tool
	order   []string
	timeout time.Duration
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout sets the per-call bounded wait.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics records tool invocation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithAuditLogger writes one audit record per call.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(r *Registry) { r.audit = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a tool. Names must be unique.
func (r *Registry) Add(t Tool) error {
	name := t.Name()
	if name == "" {
		return errors.New("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Catalogue returns the definitions of all tools in registration order.
func (r *Registry) Catalogue() []mcp.Tool {
	defs := make([]mcp.Tool, len(r.order))
	for i, name := range r.order {
		defs[i] = r.tools[name].Definition
	}
	return defs
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Execute validates and runs one call and returns its JSON output.
//
// Once started, a tool is stopped only by the registry timeout; cancelling
// ctx does not reach the handler. A tool that ignores its context is
// abandoned when the wait runs out and ErrTimeout is returned; its
// goroutine finishes in the background.
func (r *Registry) Execute(ctx context.Context, call Call) (out string, err error) {
	label := instrumentation.BoundedLabel(call.Name, r.Has)

	ctx, span := instrumentation.StartToolSpan(ctx, label, call.ID)
	invocation := instrumentation.NewToolInvocation(label, call.ID).
		WithSession(call.SessionID).
		WithParams(call.Params).
		WithSpanContext(ctx)

	defer func() {
		invocation.Complete(err, Kind(err))
		r.metrics.RecordToolInvocation(ctx, label, invocation.Status(), invocation.Duration)
		r.audit.LogToolInvocation(invocation)
		instrumentation.EndSpan(span, err)
	}()

	tool, ok := r.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}

	params := Params(call.Params)
	if params == nil {
		params = Params{}
	}
	if missing := params.missing(tool.Definition.InputSchema.Required); len(missing) > 0 {
		return "", &ParamsError{Tool: tool.Name(), Missing: missing}
	}

	value, err := r.run(ctx, tool, params)
	if err != nil {
		return "", r.classify(tool.Name(), err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s output: %w", tool.Name(), err)
	}
	return string(data), nil
}

type outcome struct {
	value any
	err   error
}

func (r *Registry) run(ctx context.Context, tool Tool, params Params) (any, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("tool panicked", "tool", tool.Name(), "panic", p)
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", tool.Name(), p)}
			}
		}()
		value, err := tool.Handler(ctx, params)
		done <- outcome{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, tool.Name(), r.timeout)
		}
		return res.value, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, tool.Name(), r.timeout)
	}
}

// classify wraps a handler error into the tool error taxonomy.
func (r *Registry) classify(name string, err error) error {
	var pe *ParamsError
	switch {
	case errors.As(err, &pe):
		pe.Tool = name
		return pe
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUpstream):
		return err
	case errors.Is(err, store.ErrQueryInvalid):
		return &ParamsError{Tool: name, Invalid: map[string]string{"query": err.Error()}}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return upstream(name, err)
	}
}
