// Package persona manages the selectable system prompt identities.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// MaxPersonas caps the persona list, default included.
const MaxPersonas = 5

// DefaultID is the id of the seeded persona, which cannot be deleted.
const DefaultID = "default"

var (
	ErrNotFound = errors.New("persona not found")
	ErrTooMany  = errors.New("persona limit reached")
	ErrDefault  = errors.New("default persona cannot be deleted")
)

// Persona is one assistant identity. Exactly one persona is active at
// a time; its SystemPrompt becomes the conversation's system message.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
	IsActive     bool   `json:"is_active"`
}

// Store keeps all personas in one JSON file. Every mutation is a
// load-save transaction under the store mutex.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens the persona file, seeding it with the default persona
// when it does not exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		seed := []Persona{{
			ID:           DefaultID,
			Name:         "Aide",
			Description:  "The standard general-purpose assistant.",
			SystemPrompt: "You are Aide, a capable and friendly personal assistant. Answer concisely and use the available tools when they help.",
			IsActive:     true,
		}}
		if err := s.write(seed); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat personas file: %w", err)
	}
	return s, nil
}

func (s *Store) read() ([]Persona, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}
	var personas []Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	return personas, nil
}

func (s *Store) write(personas []Persona) error {
	data, err := json.MarshalIndent(personas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal personas: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write personas: %w", err)
	}
	return nil
}

// List returns all personas.
func (s *Store) List() ([]Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns one persona by id.
func (s *Store) Get(id string) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	personas, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range personas {
		if personas[i].ID == id {
			return &personas[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create adds a persona. New personas start inactive.
func (s *Store) Create(name, description, systemPrompt string) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	personas, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(personas) >= MaxPersonas {
		return nil, ErrTooMany
	}

	p := Persona{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		SystemPrompt: systemPrompt,
	}
	personas = append(personas, p)
	if err := s.write(personas); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update modifies a persona's name, description, and prompt.
func (s *Store) Update(id, name, description, systemPrompt string) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	personas, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range personas {
		if personas[i].ID != id {
			continue
		}
		if name != "" {
			personas[i].Name = name
		}
		if description != "" {
			personas[i].Description = description
		}
		if systemPrompt != "" {
			personas[i].SystemPrompt = systemPrompt
		}
		if err := s.write(personas); err != nil {
			return nil, err
		}
		return &personas[i], nil
	}
	return nil, ErrNotFound
}

// Delete removes a persona. The default persona is protected; deleting
// the active persona reactivates the default.
func (s *Store) Delete(id string) error {
	if id == DefaultID {
		return ErrDefault
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	personas, err := s.read()
	if err != nil {
		return err
	}

	idx := -1
	for i := range personas {
		if personas[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	wasActive := personas[idx].IsActive
	personas = append(personas[:idx], personas[idx+1:]...)
	if wasActive {
		for i := range personas {
			personas[i].IsActive = personas[i].ID == DefaultID
		}
	}
	return s.write(personas)
}

// Activate makes one persona active and deactivates the rest in a
// single load-save transaction.
func (s *Store) Activate(id string) (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	personas, err := s.read()
	if err != nil {
		return nil, err
	}

	var activated *Persona
	for i := range personas {
		personas[i].IsActive = personas[i].ID == id
		if personas[i].IsActive {
			activated = &personas[i]
		}
	}
	if activated == nil {
		return nil, ErrNotFound
	}
	if err := s.write(personas); err != nil {
		return nil, err
	}
	return activated, nil
}

// Active returns the currently active persona, falling back to the
// first persona when none is marked active.
func (s *Store) Active() (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	personas, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, ErrNotFound
	}
	for i := range personas {
		if personas[i].IsActive {
			return &personas[i], nil
		}
	}
	return &personas[0], nil
}
