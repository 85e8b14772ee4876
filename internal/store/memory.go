package store

import (
	"context"
	"sync"
	"time"

	"github.com/saolsen/gameplay/game"
)

// Memory keeps matches in process. It is the default for tests and for
// one-off local play.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]*Match
	turns   map[string][]Turn
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		matches: make(map[string]*Match),
		turns:   make(map[string][]Turn),
	}
}

func (s *Memory) CreateMatch(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return ErrConflict
	}
	s.matches[m.ID] = cloneMatch(m)
	return nil
}

func (s *Memory) AppendTurn(_ context.Context, id string, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return ErrNotFound
	}
	if err := checkTurn(m, t); err != nil {
		return err
	}
	applyTurn(m, t)
	s.turns[id] = append(s.turns[id], cloneTurn(t))
	return nil
}

func (s *Memory) FinishMatch(_ context.Context, id string, status game.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status.Over {
		return ErrConflict
	}
	m.Status = cloneStatus(status)
	m.UpdatedAt = at
	return nil
}

func (s *Memory) GetMatch(_ context.Context, id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMatch(m), nil
}

func (s *Memory) ListTurns(_ context.Context, id string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.matches[id]; !ok {
		return nil, ErrNotFound
	}
	turns := make([]Turn, len(s.turns[id]))
	for i, t := range s.turns[id] {
		turns[i] = cloneTurn(t)
	}
	return turns, nil
}

func (s *Memory) ListMatches(_ context.Context, opts ListOptions) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := make([]Match, 0, len(s.matches))
	for _, m := range s.matches {
		ms = append(ms, *cloneMatch(m))
	}
	return filterMatches(ms, opts), nil
}

func (s *Memory) Close() error { return nil }
