package agent

import (
	"context"

	"github.com/aide-chat/aide/internal/llm"
)

// EventType tags one entry of the streaming event log.
type EventType string

const (
	// EventMeta carries the session id at stream start and the finish
	// reason at stream end. The final event of every stream is a meta.
	EventMeta EventType = "meta"

	// EventThought is auxiliary narration, e.g. vision pre-analysis.
	EventThought EventType = "thought"

	// EventContent is incremental answer text.
	EventContent EventType = "content"

	// EventToolStart announces a tool invocation.
	EventToolStart EventType = "tool_start"

	// EventToolResult carries a tool's (truncated) result.
	EventToolResult EventType = "tool_result"

	// EventError reports a gateway failure.
	EventError EventType = "error"
)

// Event is one entry in the streaming output log.
type Event struct {
	Type         EventType `json:"type"`
	SessionID    string    `json:"session_id,omitempty"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Content      string    `json:"content,omitempty"`
	Tool         string    `json:"tool,omitempty"`
	Args         string    `json:"args,omitempty"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// ProcessStream runs the think/act loop in streaming mode, delivering
// events to emit as they occur. Content fragments are forwarded as
// they arrive from the model; tool execution starts only once a round
// trip's fragment stream is exhausted and its calls are fully
// reconstructed. The last event is always a meta carrying the finish
// reason.
func (a *Agent) ProcessStream(ctx context.Context, req Request, emit func(Event)) error {
	st, err := a.prepare(ctx, req, func(thought string) {
		emit(Event{Type: EventThought, Content: thought})
	})
	if err != nil {
		return err
	}

	emit(Event{Type: EventMeta, SessionID: st.sessionID})

	for step := 0; step < st.maxSteps; step++ {
		completion, err := a.gateway.ChatStream(ctx, st.wire, a.registry.List(), func(d llm.Delta) {
			if d.Content != "" {
				emit(Event{Type: EventContent, Content: d.Content})
			}
		})
		if err != nil {
			a.logger.Error("gateway stream failed", "session_id", st.sessionID, "error", err)
			emit(Event{Type: EventError, Error: err.Error()})
			if _, ferr := a.finish(st.sessionID, gatewayFailureText, "stop"); ferr != nil {
				return ferr
			}
			emit(Event{Type: EventMeta, SessionID: st.sessionID, FinishReason: "stop"})
			return nil
		}

		if len(completion.ToolCalls) == 0 {
			if _, err := a.finish(st.sessionID, completion.Content, "stop"); err != nil {
				return err
			}
			emit(Event{Type: EventMeta, SessionID: st.sessionID, FinishReason: "stop"})
			return nil
		}

		if err := a.recordAssistantTurn(st, completion); err != nil {
			return err
		}
		for _, call := range completion.ToolCalls {
			emit(Event{
				Type: EventToolStart,
				Tool: call.Function.Name,
				Args: call.Function.Arguments,
			})
			result := a.executeCall(ctx, call, st.access)
			truncated := truncateResult(result)
			emit(Event{
				Type:   EventToolResult,
				Tool:   call.Function.Name,
				Result: truncated,
			})
			if err := a.recordToolResult(st, call, result); err != nil {
				return err
			}
		}
	}

	if _, err := a.finish(st.sessionID, stepLimitText, "length"); err != nil {
		return err
	}
	emit(Event{Type: EventContent, Content: stepLimitText})
	emit(Event{Type: EventMeta, SessionID: st.sessionID, FinishReason: "length"})
	return nil
}
