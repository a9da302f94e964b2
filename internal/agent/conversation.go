package agent

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/amodeus4/emailagent/internal/completion"
	"github.com/amodeus4/emailagent/internal/tools"
)

// TurnKind tags the variants of Turn.
type TurnKind int

const (
	UserMessage TurnKind = iota
	AssistantMessage
	ToolExchange
)

func (k TurnKind) String() string {
	switch k {
	case UserMessage:
		return "user"
	case AssistantMessage:
		return "assistant"
	case ToolExchange:
		return "tool"
	default:
		return "unknown"
	}
}

// Turn is one entry of a conversation. Text is set for user and assistant
// messages, Exchange for tool exchanges.
type Turn struct {
	Kind     TurnKind
	Text     string
	Exchange *Exchange
	At       time.Time
}

// Exchange is a tool invocation together with its terminal result.
type Exchange struct {
	Call tools.Call

	// Output is the JSON payload of a successful call.
	Output string

	// Err is the typed failure of an unsuccessful call.
	Err error
}

// Failed reports whether the invocation ended in a failure.
func (e *Exchange) Failed() bool {
	return e.Err != nil
}

// Result renders the result the way the model sees it.
func (e *Exchange) Result() string {
	if e.Err == nil {
		return e.Output
	}
	data, err := json.Marshal(map[string]string{
		"error": e.Err.Error(),
		"kind":  tools.Kind(e.Err),
	})
	if err != nil {
		return `{"error":"tool failed"}`
	}
	return string(data)
}

// Conversation is the append-only log of a session. Turns are never
// rewritten or removed.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

func (c *Conversation) append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.At = c.now()
	c.turns = append(c.turns, t)
}

// AppendUser records a user message.
func (c *Conversation) AppendUser(text string) {
	c.append(Turn{Kind: UserMessage, Text: text})
}

// AppendAssistant records an assistant message.
func (c *Conversation) AppendAssistant(text string) {
	c.append(Turn{Kind: AssistantMessage, Text: text})
}

// AppendExchange records a finished tool invocation.
func (c *Conversation) AppendExchange(e Exchange) {
	c.append(Turn{Kind: ToolExchange, Exchange: &e})
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Turns returns a copy of the log.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Turn(nil), c.turns...)
}

// Render returns the log as completion messages, in order. A tool exchange
// becomes the assistant's call followed by the tool's result.
func (c *Conversation) Render() []completion.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := make([]completion.Message, 0, len(c.turns))
	for _, t := range c.turns {
		switch t.Kind {
		case UserMessage:
			msgs = append(msgs, completion.Message{Role: completion.RoleUser, Content: t.Text})
		case AssistantMessage:
			msgs = append(msgs, completion.Message{Role: completion.RoleAssistant, Content: t.Text})
		case ToolExchange:
			call := t.Exchange.Call
			msgs = append(msgs,
				completion.Message{
					Role: completion.RoleAssistant,
					ToolCall: &completion.ToolCall{
						ID:     call.ID,
						Name:   call.Name,
						Params: call.Params,
					},
				},
				completion.Message{
					Role:       completion.RoleTool,
					ToolCallID: call.ID,
					Content:    t.Exchange.Result(),
				},
			)
		}
	}
	return msgs
}
