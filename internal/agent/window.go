package agent

import (
	"github.com/aide-chat/aide/internal/llm"
	"github.com/aide-chat/aide/internal/session"
)

// defaultWindow is how many trailing messages enter the model context.
const defaultWindow = 20

// buildWindow selects the context window from session history: at most
// the size most recent messages, with the start walked back to the
// nearest user turn so the window never opens mid-tool-call-chain.
// Without that adjustment a window could begin with orphaned tool
// results, which providers reject.
func buildWindow(messages []session.Message, size int) []session.Message {
	if size <= 0 {
		size = defaultWindow
	}

	start := len(messages) - size
	if start < 0 {
		start = 0
	}
	for start > 0 && messages[start].Role != "user" {
		start--
	}
	return messages[start:]
}

// toWire converts stored messages to the gateway wire format.
func toWire(messages []session.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		})
	}
	return out
}
