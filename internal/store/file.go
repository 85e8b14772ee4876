package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/fileutil"
	"github.com/saolsen/gameplay/internal/matchid"
)

// File stores each match in its own directory:
//
//	<dir>/<id>/match.json
//	<dir>/<id>/turn-000001.json
//
// Every file is written atomically, so a crash leaves at worst a turn file
// whose match snapshot was not yet updated. Turn files are written before the
// snapshot and the snapshot's turn count is authoritative.
type File struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*File)(nil)

// NewFile opens a store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// matchDir maps id to its directory. Ids that are not match ids cannot name
// a stored match.
func (s *File) matchDir(id string) (string, error) {
	if err := matchid.Validate(id); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, id), nil
}

func turnFile(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("turn-%06d.json", n))
}

func (s *File) readMatch(dir string) (*Match, error) {
	var m Match
	if err := fileutil.ReadJSON(filepath.Join(dir, "match.json"), &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *File) CreateMatch(_ context.Context, m *Match) error {
	if err := matchid.Validate(m.ID); err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	dir := filepath.Join(s.dir, m.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrConflict
		}
		return fmt.Errorf("create match dir: %w", err)
	}
	return fileutil.WriteJSON(filepath.Join(dir, "match.json"), m)
}

func (s *File) AppendTurn(_ context.Context, id string, t Turn) error {
	dir, err := s.matchDir(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readMatch(dir)
	if err != nil {
		return err
	}
	if err := checkTurn(m, t); err != nil {
		return err
	}
	if err := fileutil.WriteJSON(turnFile(dir, t.Number), t); err != nil {
		return err
	}
	applyTurn(m, t)
	return fileutil.WriteJSON(filepath.Join(dir, "match.json"), m)
}

func (s *File) FinishMatch(_ context.Context, id string, status game.Status, at time.Time) error {
	dir, err := s.matchDir(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readMatch(dir)
	if err != nil {
		return err
	}
	if m.Status.Over {
		return ErrConflict
	}
	m.Status = status
	m.UpdatedAt = at
	return fileutil.WriteJSON(filepath.Join(dir, "match.json"), m)
}

func (s *File) GetMatch(_ context.Context, id string) (*Match, error) {
	dir, err := s.matchDir(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readMatch(dir)
}

func (s *File) ListTurns(_ context.Context, id string) ([]Turn, error) {
	dir, err := s.matchDir(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readMatch(dir)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, m.Turns)
	for i := range turns {
		if err := fileutil.ReadJSON(turnFile(dir, i+1), &turns[i]); err != nil {
			return nil, fmt.Errorf("read turn %d: %w", i+1, err)
		}
	}
	return turns, nil
}

func (s *File) ListMatches(_ context.Context, opts ListOptions) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	// Directory names are match ids, so reverse name order is newest first
	// and only the matches that survive the filter need reading.
	slices.Reverse(entries)

	var ms []Match
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || matchid.Validate(e.Name()) != nil {
			continue
		}
		m, err := s.readMatch(filepath.Join(s.dir, e.Name()))
		if errors.Is(err, ErrNotFound) {
			// Created but not yet written.
			continue
		}
		if err != nil {
			return nil, err
		}
		if opts.Game != "" && m.Game != opts.Game {
			continue
		}
		ms = append(ms, *m)
		if opts.Limit > 0 && len(ms) == opts.Limit {
			break
		}
	}
	return ms, nil
}

func (s *File) Close() error { return nil }
