package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amodeus4/emailagent/internal/completion"
	"github.com/amodeus4/emailagent/internal/instrumentation"
	"github.com/amodeus4/emailagent/internal/logging"
	"github.com/amodeus4/emailagent/internal/store"
	"github.com/amodeus4/emailagent/internal/tools"
)

// Defaults for Config.
const (
	DefaultTurnBudget        = 5
	DefaultCompletionTimeout = 60 * time.Second
)

// Replies the loop synthesizes itself.
const (
	ExhaustedReply         = "I apologize, but I wasn't able to complete that request. Please try again."
	CompletionTimeoutReply = "Sorry, the assistant took too long to answer. Please try again in a moment."
	CompletionFailedReply  = "Sorry, I couldn't reach the language model just now. Please try again in a moment."
	StoreUnavailableReply  = "Sorry, the email index is unavailable right now, so I can't look that up. Please try again shortly."
)

// State is a step of a turn.
type State int

const (
	AwaitingUserInput State = iota
	RequestingCompletion
	ExecutingTool
	Responded
	Exhausted
)

func (s State) String() string {
	switch s {
	case AwaitingUserInput:
		return "awaiting_user_input"
	case RequestingCompletion:
		return "requesting_completion"
	case ExecutingTool:
		return "executing_tool"
	case Responded:
		return "responded"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeResponded Outcome = instrumentation.OutcomeResponded
	OutcomeExhausted Outcome = instrumentation.OutcomeExhausted
	OutcomeDegraded  Outcome = instrumentation.OutcomeDegraded
)

// Reply is the result of one turn.
type Reply struct {
	Text    string
	Outcome Outcome

	// ToolCalls is the number of tools executed during the turn.
	ToolCalls int
}

// Executor runs tool calls. *tools.Registry implements it.
type Executor interface {
	Execute(ctx context.Context, call tools.Call) (string, error)
	Catalogue() []mcp.Tool
}

// Config bounds a turn.
type Config struct {
	// TurnBudget is the number of tool calls a turn may make.
	TurnBudget int

	// CompletionTimeout bounds each completion request.
	CompletionTimeout time.Duration

	// SystemPrompt defaults to DefaultSystemPrompt.
	SystemPrompt string
}

// Loop drives turns for any number of sessions. It holds no per-session
// state and is safe for concurrent use.
type Loop struct {
	provider completion.Provider
	tools    Executor
	config   Config
	specs    []completion.ToolSpec
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithMetrics records turn outcomes and active sessions.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New creates a loop over provider and executor.
func New(provider completion.Provider, executor Executor, cfg Config, opts ...Option) *Loop {
	if cfg.TurnBudget <= 0 {
		cfg.TurnBudget = DefaultTurnBudget
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = DefaultCompletionTimeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	l := &Loop{
		provider: provider,
		tools:    executor,
		config:   cfg,
		specs:    toolSpecs(executor.Catalogue()),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.WithComponent(l.logger, "agent")
	return l
}

func toolSpecs(defs []mcp.Tool) []completion.ToolSpec {
	specs := make([]completion.ToolSpec, len(defs))
	for i, d := range defs {
		specs[i] = completion.ToolSpec{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema,
		}
	}
	return specs
}

// request builds the completion context: the system prompt, then the
// rendered conversation.
func (l *Loop) request(conv *Conversation) completion.Request {
	msgs := []completion.Message{{
		Role:    completion.RoleSystem,
		Content: systemPrompt(l.config.SystemPrompt, l.now()),
	}}
	msgs = append(msgs, conv.Render()...)
	return completion.Request{Messages: msgs, Tools: l.specs}
}

// turn runs one user message to a terminal state. Errors are returned only
// for cancellation; every other failure becomes a Reply.
func (l *Loop) turn(ctx context.Context, s *Session, text string) (reply Reply, err error) {
	logger := logging.WithSession(l.logger, s.id)

	if err := ctx.Err(); err != nil {
		l.metrics.RecordAgentTurn(ctx, instrumentation.OutcomeCancelled)
		return Reply{}, err
	}

	ctx, span := instrumentation.StartSpan(ctx, "agent.turn",
		attribute.String(instrumentation.SpanAttrSessionID, s.id))
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.Int(instrumentation.SpanAttrTurnSteps, reply.ToolCalls))
		outcome := string(reply.Outcome)
		if err != nil {
			outcome = instrumentation.OutcomeCancelled
		}
		l.metrics.RecordAgentTurn(ctx, outcome)
		logger.Info("turn finished",
			logging.Status(outcome),
			slog.Int("tool_calls", reply.ToolCalls),
			logging.Duration(time.Since(start)))
		instrumentation.EndSpan(span, err)
	}()

	s.conv.AppendUser(text)
	calls := 0

	for {
		logger.Debug("turn step", "state", RequestingCompletion.String(), "tool_calls", calls)

		resp, err := l.complete(ctx, s.conv)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, completion.ErrTimeout) {
				return Reply{ToolCalls: calls}, ctxErr
			}
			logger.Warn("completion failed", logging.Err(err))
			msg := CompletionFailedReply
			if errors.Is(err, completion.ErrTimeout) {
				msg = CompletionTimeoutReply
			}
			return l.finish(s, msg, OutcomeDegraded, calls), nil
		}

		if !resp.IsToolCall() {
			return l.finish(s, resp.Text, OutcomeResponded, calls), nil
		}

		if calls >= l.config.TurnBudget {
			logger.Warn("tool budget exhausted",
				slog.Int("budget", l.config.TurnBudget),
				logging.Tool(instrumentation.BoundedLabel(resp.ToolCall.Name, l.known)))
			return l.finish(s, ExhaustedReply, OutcomeExhausted, calls), nil
		}

		logger.Debug("turn step", "state", ExecutingTool.String(), logging.Tool(resp.ToolCall.Name))
		calls++
		call := tools.Call{
			ID:        s.invocationID(resp.ToolCall.ID),
			Name:      resp.ToolCall.Name,
			Params:    resp.ToolCall.Params,
			SessionID: s.id,
		}
		out, toolErr := l.tools.Execute(ctx, call)
		s.conv.AppendExchange(Exchange{Call: call, Output: out, Err: toolErr})

		if toolErr != nil {
			logger.Info("tool failed",
				logging.Tool(instrumentation.BoundedLabel(call.Name, l.known)),
				logging.Invocation(call.ID),
				logging.Err(toolErr))
			if errors.Is(toolErr, store.ErrUnavailable) {
				return l.finish(s, StoreUnavailableReply, OutcomeDegraded, calls), nil
			}
		}

		if err := ctx.Err(); err != nil {
			return Reply{ToolCalls: calls}, err
		}
	}
}

func (l *Loop) complete(ctx context.Context, conv *Conversation) (completion.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.CompletionTimeout)
	defer cancel()

	resp, err := l.provider.Complete(ctx, l.request(conv))
	if err != nil && !errors.Is(err, completion.ErrTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = errors.Join(completion.ErrTimeout, err)
	}
	return resp, err
}

func (l *Loop) finish(s *Session, text string, outcome Outcome, calls int) Reply {
	s.conv.AppendAssistant(text)
	return Reply{Text: text, Outcome: outcome, ToolCalls: calls}
}

func (l *Loop) known(name string) bool {
	for _, spec := range l.specs {
		if spec.Name == name {
			return true
		}
	}
	return false
}
