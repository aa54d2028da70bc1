package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aide-chat/aide/internal/llm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create("my chat")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty id")
	}

	got, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "my chat" {
		t.Errorf("expected title preserved, got %q", got.Title)
	}
	if len(got.Messages) != 0 {
		t.Errorf("expected empty messages, got %d", len(got.Messages))
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCorruptFileIsNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("bad"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected corrupt file to read as absent, got %v", err)
	}
}

func TestAppendDerivesTitle(t *testing.T) {
	s := newTestStore(t)
	created, err := s.Create("")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sess, err := s.Append(created.ID, Message{Role: "user", Content: "今天上海的天气怎么样？顺便帮我查一下明天的"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	want := string([]rune("今天上海的天气怎么样？顺便帮我查一下明天的")[:20])
	if sess.Title != want {
		t.Errorf("expected title %q, got %q", want, sess.Title)
	}

	// Title is fixed by the first user turn; later appends do not change it.
	sess, err = s.Append(created.ID, Message{Role: "user", Content: "something else entirely"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sess.Title != want {
		t.Errorf("title changed on second append: %q", sess.Title)
	}
	if len(sess.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(sess.Messages))
	}
}

func TestAppendShortTitle(t *testing.T) {
	s := newTestStore(t)
	created, _ := s.Create("")
	sess, err := s.Append(created.ID, Message{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sess.Title != "hi" {
		t.Errorf("expected title hi, got %q", sess.Title)
	}
}

func TestAppendAssistantFirstLeavesTitleEmpty(t *testing.T) {
	s := newTestStore(t)
	created, _ := s.Create("")
	sess, err := s.Append(created.ID, Message{Role: "assistant", Content: "hello there"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if sess.Title != "" {
		t.Errorf("expected empty title before a user turn, got %q", sess.Title)
	}
}

func TestAppendUnknownSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append("nope", Message{Role: "user", Content: "hi"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendDeletedSessionStaysDeleted(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("doomed")
	if _, err := s.Append(sess.ID, Message{Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Append(sess.ID, Message{Role: "user", Content: "again"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Error("late append resurrected the deleted session")
	}
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.Create("first")
	b, _ := s.Create("second")

	// Force distinct update times.
	sb, _ := s.Get(b.ID)
	sb.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	if err := s.save(sb); err != nil {
		t.Fatal(err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(metas))
	}
	if metas[0].ID != a.ID {
		t.Errorf("expected most recently updated first, got %s", metas[0].ID)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("gone soon")

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected session gone, got %v", err)
	}
	if err := s.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	created, err := s.Create("shared")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(created.ID, Message{Role: "user", Content: fmt.Sprintf("msg %d", i)})
			if err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	sess, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != n {
		t.Errorf("lost appends: expected %d messages, got %d", n, len(sess.Messages))
	}
}

func TestRepairToolNames(t *testing.T) {
	sess := &Session{
		Messages: []Message{
			{Role: "user", Content: "weather in sh?"},
			{Role: "assistant", ToolCalls: []llm.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: llm.FunctionCall{Name: "get_weather", Arguments: `{"city":"sh"}`},
			}}},
			{Role: "tool", ToolCallID: "call_1", Content: "sunny"},
			{Role: "tool", ToolCallID: "call_unknown", Content: "orphan"},
		},
	}

	RepairToolNames(sess)

	if got := sess.Messages[2].Name; got != "get_weather" {
		t.Errorf("expected backfilled name get_weather, got %q", got)
	}
	if got := sess.Messages[3].Name; got != "" {
		t.Errorf("expected orphan tool message untouched, got %q", got)
	}
}
