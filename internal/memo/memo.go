// Package memo is the assistant's scratch-pad memory, a flat JSON file
// of short notes the model can add, read, and delete through tools.
package memo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrNotFound is returned when a memo id does not exist.
var ErrNotFound = errors.New("memo not found")

// Memo is one saved note. IDs are small sequential integers so the
// model can reference them reliably.
type Memo struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps all memos in one JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens the memo file, creating an empty one if needed.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat memos file: %w", err)
	}
	return s, nil
}

func (s *Store) read() ([]Memo, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read memos: %w", err)
	}
	var memos []Memo
	if err := json.Unmarshal(data, &memos); err != nil {
		return nil, fmt.Errorf("parse memos: %w", err)
	}
	return memos, nil
}

func (s *Store) write(memos []Memo) error {
	if memos == nil {
		memos = []Memo{}
	}
	data, err := json.MarshalIndent(memos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memos: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write memos: %w", err)
	}
	return nil
}

// Add stores a new memo. The id is one past the current maximum, so
// ids are not reused until the highest memo is deleted.
func (s *Store) Add(content string) (*Memo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memos, err := s.read()
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, m := range memos {
		if m.ID > maxID {
			maxID = m.ID
		}
	}

	m := Memo{
		ID:        maxID + 1,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	memos = append(memos, m)
	if err := s.write(memos); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all memos in storage order.
func (s *Store) List() ([]Memo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Delete removes a memo by id.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	memos, err := s.read()
	if err != nil {
		return err
	}
	for i, m := range memos {
		if m.ID == id {
			memos = append(memos[:i], memos[i+1:]...)
			return s.write(memos)
		}
	}
	return ErrNotFound
}
