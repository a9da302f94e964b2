package agent

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodeus4/emailagent/internal/completion"
	"github.com/amodeus4/emailagent/internal/tools"
)

func TestConversationRender(t *testing.T) {
	c := NewConversation()
	c.AppendUser("any invoices?")
	c.AppendExchange(Exchange{
		Call:   tools.Call{ID: "c1", Name: "search_emails", Params: map[string]any{"search_text": "invoice"}},
		Output: `{"count":0}`,
	})
	c.AppendExchange(Exchange{
		Call: tools.Call{ID: "c2", Name: "conversation_history"},
		Err:  &tools.ParamsError{Tool: "conversation_history", Missing: []string{"email_address"}},
	})
	c.AppendAssistant("No invoices found.")

	msgs := c.Render()
	require.Len(t, msgs, 6)

	assert.Equal(t, completion.RoleUser, msgs[0].Role)
	assert.Equal(t, "any invoices?", msgs[0].Content)

	assert.Equal(t, completion.RoleAssistant, msgs[1].Role)
	require.NotNil(t, msgs[1].ToolCall)
	assert.Equal(t, "c1", msgs[1].ToolCall.ID)
	assert.Equal(t, completion.RoleTool, msgs[2].Role)
	assert.Equal(t, "c1", msgs[2].ToolCallID)
	assert.Equal(t, `{"count":0}`, msgs[2].Content)

	var failure map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[4].Content), &failure))
	assert.Equal(t, tools.KindBadParams, failure["kind"])
	assert.Contains(t, failure["error"], "email_address")

	assert.Equal(t, completion.RoleAssistant, msgs[5].Role)
	assert.Equal(t, "No invoices found.", msgs[5].Content)
}

func TestConversationAppendOnly(t *testing.T) {
	c := NewConversation()
	c.AppendUser("one")

	turns := c.Turns()
	turns[0].Text = "changed"

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "one", c.Turns()[0].Text)
	assert.False(t, c.Turns()[0].At.IsZero())
}

func TestConversationConcurrentAppend(t *testing.T) {
	c := NewConversation()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			c.AppendUser(fmt.Sprint(i))
			_ = c.Render()
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Equal(t, 10, c.Len())
}

func TestTurnKindString(t *testing.T) {
	assert.Equal(t, "user", UserMessage.String())
	assert.Equal(t, "assistant", AssistantMessage.String())
	assert.Equal(t, "tool", ToolExchange.String())
}
