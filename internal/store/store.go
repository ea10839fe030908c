// Package store persists the online leaderboard behind the reference server.
// Records are keyed by opaque server-generated IDs, as the hosted document
// store does it.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/upward-game/leaderboard/internal/models"
)

// Entry is a stored record and its key.
type Entry struct {
	ID     string
	Record models.ScoreRecord
}

// Store is the leaderboard collection.
type Store interface {
	// Add stores rec under a new ID and returns it.
	Add(ctx context.Context, rec models.ScoreRecord) (string, error)
	// Top returns up to limit entries, fastest first.
	Top(ctx context.Context, limit int) ([]Entry, error)
	Ping(ctx context.Context) error
}

// NewID returns a fresh record key. Keys sort by creation time, which
// keeps the raw collection readable in a database console.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// MemoryStore keeps the collection in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(ctx context.Context, rec models.ScoreRecord) (string, error) {
	id := NewID()
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UTC().Unix()
	}

	s.mu.Lock()
	s.entries = append(s.entries, Entry{ID: id, Record: rec})
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Top(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record.Time < out[j].Record.Time
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
