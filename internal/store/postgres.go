package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/terralens/landsat-dash/internal/db"
	"github.com/terralens/landsat-dash/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot cache lookups.
var preparedStatements = map[string]string{
	"get_artifact": `SELECT id, year, fingerprint, kind, content_type, payload, created_at, expires_at FROM artifacts
	                 WHERE year = $1 AND fingerprint = $2 AND kind = $3 AND (expires_at IS NULL OR expires_at > now())`,
	"put_artifact": `INSERT INTO artifacts (id, year, fingerprint, kind, content_type, payload, created_at, expires_at)
	                 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	                 ON CONFLICT (year, fingerprint, kind) DO UPDATE SET
	                   content_type = EXCLUDED.content_type, payload = EXCLUDED.payload,
	                   created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
	"get_stats": `SELECT year, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at
	              FROM region_stats WHERE year = $1 AND fingerprint = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	year         INTEGER NOT NULL,
	fingerprint  TEXT NOT NULL,
	kind         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	payload      BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ,
	UNIQUE (year, fingerprint, kind)
);

CREATE TABLE IF NOT EXISTS region_stats (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	year        INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	status      TEXT NOT NULL,
	image_count INTEGER NOT NULL DEFAULT 0,
	ndvi_mean   DOUBLE PRECISION,
	ndvi_min    DOUBLE PRECISION,
	ndvi_max    DOUBLE PRECISION,
	temp_mean_c DOUBLE PRECISION,
	computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (year, fingerprint)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_lookup ON artifacts(year, fingerprint, kind);
CREATE INDEX IF NOT EXISTS idx_artifacts_expires_at ON artifacts(expires_at);
CREATE INDEX IF NOT EXISTS idx_region_stats_fingerprint ON region_stats(fingerprint, year);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetArtifact(ctx context.Context, year int, fingerprint string, kind model.ArtifactKind) (*model.Artifact, error) {
	var a model.Artifact
	var expiresAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, year, fingerprint, kind, content_type, payload, created_at, expires_at FROM artifacts
		 WHERE year = $1 AND fingerprint = $2 AND kind = $3 AND (expires_at IS NULL OR expires_at > now())`,
		year, fingerprint, string(kind),
	).Scan(&a.ID, &a.Year, &a.Fingerprint, &a.Kind, &a.ContentType, &a.Payload, &a.CreatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get artifact")
	}
	if expiresAt != nil {
		a.ExpiresAt = *expiresAt
	}
	return &a, nil
}

func (s *PostgresStore) PutArtifact(ctx context.Context, a *model.Artifact, ttl time.Duration) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now

	var expiresAt *time.Time
	if ttl > 0 {
		a.ExpiresAt = now.Add(ttl)
		expiresAt = &a.ExpiresAt
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO artifacts (id, year, fingerprint, kind, content_type, payload, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (year, fingerprint, kind) DO UPDATE SET
		   content_type = EXCLUDED.content_type, payload = EXCLUDED.payload,
		   created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		a.ID, a.Year, a.Fingerprint, string(a.Kind), a.ContentType, a.Payload, now, expiresAt,
	)
	return eris.Wrap(err, "postgres: put artifact")
}

func (s *PostgresStore) DeleteExpiredArtifacts(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM artifacts WHERE expires_at IS NOT NULL AND expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired artifacts")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetStats(ctx context.Context, year int, fingerprint string) (*model.RegionStats, error) {
	var st model.RegionStats
	var mean, min, max, temp *float64

	err := s.pool.QueryRow(ctx,
		`SELECT year, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at
		 FROM region_stats WHERE year = $1 AND fingerprint = $2`,
		year, fingerprint,
	).Scan(&st.Year, &st.Status, &st.ImageCount, &mean, &min, &max, &temp, &st.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get stats")
	}

	assignStats(&st, mean, min, max, temp)
	return &st, nil
}

func (s *PostgresStore) PutStats(ctx context.Context, fingerprint string, stats model.RegionStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO region_stats (id, year, fingerprint, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (year, fingerprint) DO UPDATE SET
		   status = EXCLUDED.status, image_count = EXCLUDED.image_count,
		   ndvi_mean = EXCLUDED.ndvi_mean, ndvi_min = EXCLUDED.ndvi_min,
		   ndvi_max = EXCLUDED.ndvi_max, temp_mean_c = EXCLUDED.temp_mean_c,
		   computed_at = EXCLUDED.computed_at`,
		statsArgs(fingerprint, stats)...,
	)
	return eris.Wrap(err, "postgres: put stats")
}

// PutStatsBatch upserts a run of yearly stats in one round trip via a temp
// table COPY.
func (s *PostgresStore) PutStatsBatch(ctx context.Context, fingerprint string, stats []model.RegionStats) (int64, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, statsArgs(fingerprint, st))
	}

	n, err := db.CopyUpsert(ctx, s.pool, db.Upsert{
		Table: "region_stats",
		Columns: []string{
			"id", "year", "fingerprint", "status", "image_count",
			"ndvi_mean", "ndvi_min", "ndvi_max", "temp_mean_c", "computed_at",
		},
		Conflict: []string{"year", "fingerprint"},
		Update: []string{
			"status", "image_count", "ndvi_mean", "ndvi_min", "ndvi_max",
			"temp_mean_c", "computed_at",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: put stats batch")
	}
	return n, nil
}

func (s *PostgresStore) ListStats(ctx context.Context, filter StatsFilter) ([]model.RegionStats, error) {
	query := `SELECT year, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at
	          FROM region_stats WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Fingerprint != "" {
		query += fmt.Sprintf(` AND fingerprint = $%d`, argIdx)
		args = append(args, filter.Fingerprint)
		argIdx++
	}
	if filter.FromYear > 0 {
		query += fmt.Sprintf(` AND year >= $%d`, argIdx)
		args = append(args, filter.FromYear)
		argIdx++
	}
	if filter.ToYear > 0 {
		query += fmt.Sprintf(` AND year <= $%d`, argIdx)
		args = append(args, filter.ToYear)
		argIdx++
	}
	query += ` ORDER BY year ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stats")
	}
	defer rows.Close()

	var out []model.RegionStats
	for rows.Next() {
		var st model.RegionStats
		var mean, min, max, temp *float64

		if err := rows.Scan(&st.Year, &st.Status, &st.ImageCount, &mean, &min, &max, &temp, &st.ComputedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stats")
		}
		assignStats(&st, mean, min, max, temp)
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list stats iterate")
}

func assignStats(st *model.RegionStats, mean, min, max, temp *float64) {
	if mean != nil {
		st.NDVIMean = *mean
	}
	if min != nil {
		st.NDVIMin = *min
	}
	if max != nil {
		st.NDVIMax = *max
	}
	if temp != nil {
		st.TempMeanC = *temp
	}
}
