// Package session persists chat histories, one JSON file per session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aide-chat/aide/internal/llm"
)

// ErrNotFound is returned when a session id has no backing file.
var ErrNotFound = errors.New("session not found")

// titleRunes is how much of the first user message becomes the title.
const titleRunes = 20

// Message is one stored chat turn. It extends the wire message with a
// timestamp; the zero Timestamp is kept for messages imported from
// older files.
type Message struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp,omitempty"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// Session is a full conversation record.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Meta is the listing view of a session, without its messages.
type Meta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store reads and writes sessions under a directory. Concurrent
// appends to the same session are serialized by a per-id mutex so the
// load-modify-store cycle never interleaves.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a session store rooted at dir, creating it if
// needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lock returns the mutex guarding one session id, creating it on first
// use. Lock entries are never removed; ids are few and small.
func (s *Store) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create makes a new empty session and persists it immediately.
func (s *Store) Create(title string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads one session. A corrupt file is treated the same as a
// missing one: the id effectively names no session.
func (s *Store) Get(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("discarding corrupt session file", "id", id, "error", err)
		return nil, ErrNotFound
	}
	return &sess, nil
}

// List returns session metadata sorted by update time, newest first.
// Unreadable or corrupt files are skipped.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	metas := make([]Meta, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		sess, err := s.Get(id)
		if err != nil {
			continue
		}
		metas = append(metas, Meta{
			ID:           sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.Messages),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Append adds one message to an existing session. An unknown id is
// ErrNotFound; a session deleted mid-conversation stays deleted rather
// than being resurrected by a late write. The session title is derived
// from the first user message once one exists.
func (s *Store) Append(id string, msg Message) (*Session, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now().UTC()

	if sess.Title == "" {
		sess.Title = deriveTitle(sess.Messages)
	}

	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session file. Deleting an unknown id is an error.
func (s *Store) Delete(id string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *Store) save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	if err := os.WriteFile(s.path(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

// deriveTitle takes the first user message's leading runes as the
// session title.
func deriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != "user" || m.Content == "" {
			continue
		}
		r := []rune(m.Content)
		if len(r) > titleRunes {
			r = r[:titleRunes]
		}
		return string(r)
	}
	return ""
}

// RepairToolNames backfills the name field on tool messages that lack
// one, matching each against the tool_calls of the preceding assistant
// messages. Histories written before names were recorded load cleanly
// after this pass.
func RepairToolNames(sess *Session) {
	names := make(map[string]string)
	for i := range sess.Messages {
		m := &sess.Messages[i]
		for _, tc := range m.ToolCalls {
			if tc.ID != "" && tc.Function.Name != "" {
				names[tc.ID] = tc.Function.Name
			}
		}
		if m.Role == "tool" && m.Name == "" && m.ToolCallID != "" {
			if name, ok := names[m.ToolCallID]; ok {
				m.Name = name
			}
		}
	}
}
