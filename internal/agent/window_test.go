package agent

import (
	"testing"

	"github.com/aide-chat/aide/internal/session"
)

func msg(role string) session.Message {
	return session.Message{Role: role, Content: role}
}

func TestWindowShortHistoryKeptWhole(t *testing.T) {
	history := []session.Message{msg("user"), msg("assistant"), msg("user")}
	got := buildWindow(history, 20)
	if len(got) != 3 {
		t.Errorf("expected full history, got %d messages", len(got))
	}
}

func TestWindowWalksBackToUserTurn(t *testing.T) {
	// 25 messages; the naive cut at index 5 would start on an
	// assistant turn, stranding the tool results that follow it.
	history := []session.Message{
		msg("user"),      // 0
		msg("assistant"), // 1 (with calls in the real flow)
		msg("tool"),      // 2
		msg("tool"),      // 3
		msg("user"),      // 4
		msg("assistant"), // 5
	}
	for i := 6; i < 25; i++ {
		if i%2 == 0 {
			history = append(history, msg("user"))
		} else {
			history = append(history, msg("assistant"))
		}
	}

	got := buildWindow(history, 20)
	if got[0].Role != "user" {
		t.Errorf("window must open on a user turn, got %q", got[0].Role)
	}
	// Cut point 25-20=5 is an assistant turn; the start walks back to
	// the user turn at index 4.
	if len(got) != 21 {
		t.Errorf("expected start index 4 (21 messages), got %d messages", len(got))
	}
}

func TestWindowNeverStartsOnToolTurn(t *testing.T) {
	var history []session.Message
	history = append(history, msg("user"))
	for i := 0; i < 30; i++ {
		history = append(history, msg("assistant"), msg("tool"), msg("tool"))
	}

	got := buildWindow(history, 20)
	if got[0].Role == "tool" || got[0].Role == "assistant" {
		t.Errorf("window starts mid-chain on %q", got[0].Role)
	}
}

func TestWindowAllNonUserFallsBackToStart(t *testing.T) {
	var history []session.Message
	for i := 0; i < 25; i++ {
		history = append(history, msg("assistant"))
	}
	got := buildWindow(history, 20)
	if len(got) != 25 {
		t.Errorf("with no user turn the walk stops at the beginning, got %d", len(got))
	}
}

func TestToWirePreservesFields(t *testing.T) {
	in := []session.Message{
		{Role: "tool", Content: "result", ToolCallID: "call_1", Name: "get_weather"},
	}
	out := toWire(in)
	if out[0].ToolCallID != "call_1" || out[0].Name != "get_weather" {
		t.Errorf("tool fields lost: %+v", out[0])
	}
}

func TestWindowSizes(t *testing.T) {
	for _, size := range []int{1, 5, 20} {
		var history []session.Message
		for i := 0; i < 40; i++ {
			history = append(history, msg("user"))
		}
		got := buildWindow(history, size)
		if len(got) != size {
			t.Errorf("size %d: got %d messages", size, len(got))
		}
	}
	// Zero uses the default.
	var history []session.Message
	for i := 0; i < 40; i++ {
		history = append(history, msg("user"))
	}
	if got := buildWindow(history, 0); len(got) != defaultWindow {
		t.Errorf("size 0 should default to %d, got %d", defaultWindow, len(got))
	}
}
