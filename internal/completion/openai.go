package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/amodeus4/emailagent/internal/instrumentation"
)

// DefaultModel is used when OpenAIConfig.Model is empty.
const DefaultModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI compatible endpoint. BaseURL points at
// alternatives such as Ollama or a proxy.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAI is a Provider backed by the chat completions API.
type OpenAI struct {
	client  *openai.Client
	model   string
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

var _ Provider = (*OpenAI)(nil)

// Option configures an OpenAI provider.
type Option func(*OpenAI)

// WithMetrics records completion metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *OpenAI) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *OpenAI) { o.logger = l }
}

// NewOpenAI creates a provider for cfg.
func NewOpenAI(cfg OpenAIConfig, opts ...Option) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	o := &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "completion", "model", model)
	return o
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete sends req as a chat completion. Only one tool call is requested
// per round; if the model still returns several, the first one is used.
func (o *OpenAI) Complete(ctx context.Context, req Request) (resp Response, err error) {
	ctx, span := instrumentation.StartCompletionSpan(ctx, o.model)
	start := time.Now()
	defer func() {
		outcome := instrumentation.CompletionText
		switch {
		case errors.Is(err, ErrTimeout):
			outcome = instrumentation.CompletionTimeout
		case err != nil:
			outcome = instrumentation.CompletionError
		case resp.IsToolCall():
			outcome = instrumentation.CompletionToolCall
		}
		o.metrics.RecordCompletion(ctx, o.model, outcome, time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	chatReq, err := o.chatRequest(req)
	if err != nil {
		return Response{}, err
	}

	chatResp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", timeoutError(ctx, err))
	}

	return parseChatResponse(chatResp)
}

func (o *OpenAI) chatRequest(req Request) (openai.ChatCompletionRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg, err := chatMessage(m)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		messages = append(messages, msg)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = make([]openai.Tool, len(req.Tools))
		for i, t := range req.Tools {
			chatReq.Tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
		chatReq.ParallelToolCalls = false
	}
	return chatReq, nil
}

func chatMessage(m Message) (openai.ChatCompletionMessage, error) {
	msg := openai.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	if m.ToolCall != nil {
		args, err := json.Marshal(m.ToolCall.Params)
		if err != nil {
			return msg, fmt.Errorf("encoding arguments of %s: %w", m.ToolCall.Name, err)
		}
		msg.ToolCalls = []openai.ToolCall{{
			ID:   m.ToolCall.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      m.ToolCall.Name,
				Arguments: string(args),
			},
		}}
	}
	return msg, nil
}

func parseChatResponse(resp openai.ChatCompletionResponse) (Response, error) {
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: no choices", ErrMalformed)
	}
	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) == 0 {
		return Response{Text: msg.Content}, nil
	}

	tc := msg.ToolCalls[0]
	if tc.Function.Name == "" {
		return Response{}, fmt.Errorf("%w: tool call without a name", ErrMalformed)
	}
	params := map[string]any{}
	if args := strings.TrimSpace(tc.Function.Arguments); args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return Response{}, fmt.Errorf("%w: arguments of %s: %w", ErrMalformed, tc.Function.Name, err)
		}
	}

	return Response{ToolCall: &ToolCall{
		ID:     tc.ID,
		Name:   tc.Function.Name,
		Params: params,
	}}, nil
}
