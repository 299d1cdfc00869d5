package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry is the JSON-backed store of configured sessions. Sessions are
// created and edited here; the Manager only mutates their activation state.
type Registry struct {
	path string

	mu       sync.Mutex
	sessions map[string]*Session // by ID
}

// NewRegistry creates a registry over the given file and loads it. A
// missing file is an empty registry; a corrupt file is an error.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, sessions: map[string]*Session{}}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// DefaultPath returns the standard sessions file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sessionctl", "sessions.json")
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read sessions file: %w", err)
	}

	sessions := map[string]*Session{}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("failed to parse sessions file: %w", err)
	}
	r.sessions = sessions
	return nil
}

// Save writes the registry back to disk.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	if len(r.sessions) == 0 {
		err := os.Remove(r.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.MarshalIndent(r.sessions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0600)
}

// Find looks a session up by id first, then by alias.
func (r *Registry) Find(idOrAlias string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[idOrAlias]; ok {
		return s, true
	}
	for _, s := range r.sessions {
		if s.Alias == idOrAlias {
			return s, true
		}
	}
	return nil, false
}

// Put inserts or replaces a session and persists. Aliases must stay unique
// because the alias doubles as the credentials-file section name.
func (r *Registry) Put(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.Alias == s.Alias && existing.ID != s.ID {
			return fmt.Errorf("alias '%s' is already used by another session", s.Alias)
		}
	}
	r.sessions[s.ID] = s
	return r.saveLocked()
}

// Remove deletes a session by id or alias and persists. The sessions file is
// removed entirely when the last session goes.
func (r *Registry) Remove(idOrAlias string) error {
	s, ok := r.Find(idOrAlias)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, idOrAlias)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.ID)
	return r.saveLocked()
}

// List returns all sessions sorted by alias.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}
