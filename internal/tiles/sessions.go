package tiles

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// MintFunc creates a fresh engine map session for a year. The composite
// service supplies it so this package stays independent of expression
// building.
type MintFunc func(ctx context.Context, year int) (earthengine.TileSet, error)

// Sessions tracks the engine map session for each year. Engine sessions
// expire server-side, so entries are re-minted after the configured TTL.
type Sessions struct {
	mu      sync.RWMutex
	entries map[int]*sessionEntry
	mint    MintFunc
	ttl     time.Duration
}

type sessionEntry struct {
	set       earthengine.TileSet
	createdAt time.Time
}

// NewSessions creates a session registry with the given per-session TTL.
func NewSessions(mint MintFunc, ttl time.Duration) *Sessions {
	return &Sessions{
		entries: make(map[int]*sessionEntry),
		mint:    mint,
		ttl:     ttl,
	}
}

// Get returns the live session for a year, minting one if absent or stale.
// Concurrent misses may mint twice; the last write wins and both sessions
// are valid.
func (s *Sessions) Get(ctx context.Context, year int) (earthengine.TileSet, error) {
	s.mu.RLock()
	entry, ok := s.entries[year]
	s.mu.RUnlock()

	if ok && time.Since(entry.createdAt) < s.ttl {
		return entry.set, nil
	}
	return s.Refresh(ctx, year)
}

// Refresh discards any session for the year and mints a new one.
func (s *Sessions) Refresh(ctx context.Context, year int) (earthengine.TileSet, error) {
	set, err := s.mint(ctx, year)
	if err != nil {
		return earthengine.TileSet{}, err
	}

	s.mu.Lock()
	s.entries[year] = &sessionEntry{set: set, createdAt: time.Now()}
	s.mu.Unlock()

	zap.L().Debug("tiles: minted map session",
		zap.Int("year", year), zap.String("name", set.Name))
	return set, nil
}

// Drop removes the session for a year without minting a replacement.
func (s *Sessions) Drop(year int) {
	s.mu.Lock()
	delete(s.entries, year)
	s.mu.Unlock()
}
