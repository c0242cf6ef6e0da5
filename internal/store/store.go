// Package store persists composite artifacts and yearly region stats.
// Artifacts are rendered bytes (thumbnails, charts) cached against a
// parameter fingerprint; stats are the numeric summaries behind the chart
// and the stats endpoints. SQLite backs single-machine use, Postgres backs
// shared deployments.
package store

import (
	"context"
	"time"

	"github.com/terralens/landsat-dash/internal/model"
)

// StatsFilter specifies criteria for listing stats rows.
type StatsFilter struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	FromYear    int    `json:"from_year,omitempty"`
	ToYear      int    `json:"to_year,omitempty"`
}

// Store defines the persistence interface for the composite cache.
type Store interface {
	// Artifacts
	GetArtifact(ctx context.Context, year int, fingerprint string, kind model.ArtifactKind) (*model.Artifact, error)
	PutArtifact(ctx context.Context, a *model.Artifact, ttl time.Duration) error
	DeleteExpiredArtifacts(ctx context.Context) (int, error)

	// Region stats
	GetStats(ctx context.Context, year int, fingerprint string) (*model.RegionStats, error)
	PutStats(ctx context.Context, fingerprint string, stats model.RegionStats) error
	PutStatsBatch(ctx context.Context, fingerprint string, stats []model.RegionStats) (int64, error)
	ListStats(ctx context.Context, filter StatsFilter) ([]model.RegionStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
