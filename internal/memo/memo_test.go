package memo

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aide-chat/aide/internal/tools"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "memos.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Add("first")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, _ := s.Add("second")

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("expected ids 1,2 got %d,%d", a.ID, b.ID)
	}
}

func TestIDIsMaxPlusOne(t *testing.T) {
	s := newTestStore(t)
	s.Add("one")   // id 1
	s.Add("two")   // id 2
	s.Add("three") // id 3

	if err := s.Delete(2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	m, err := s.Add("four")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Deleting a middle memo must not recycle its id.
	if m.ID != 4 {
		t.Errorf("expected id 4 after deleting id 2, got %d", m.ID)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestToolsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	r := tools.NewRegistry()
	RegisterTools(r, s)
	ctx := context.Background()

	out, err := r.Execute(ctx, "add_memo", `{"content":"buy milk"}`)
	if err != nil {
		t.Fatalf("add_memo: %v", err)
	}
	if !strings.Contains(out, "1") {
		t.Errorf("expected confirmation naming id 1, got %q", out)
	}

	out, err = r.Execute(ctx, "read_memos", "")
	if err != nil {
		t.Fatalf("read_memos: %v", err)
	}
	var memos []Memo
	if err := json.Unmarshal([]byte(out), &memos); err != nil {
		t.Fatalf("read_memos output not JSON: %v", err)
	}
	if len(memos) != 1 || memos[0].Content != "buy milk" {
		t.Errorf("unexpected memos: %+v", memos)
	}

	if _, err := r.Execute(ctx, "delete_memo", `{"memo_id":1}`); err != nil {
		t.Fatalf("delete_memo: %v", err)
	}
	out, _ = r.Execute(ctx, "read_memos", "")
	if out != "No memos saved." {
		t.Errorf("expected empty message, got %q", out)
	}
}
