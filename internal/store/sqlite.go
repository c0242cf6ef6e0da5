package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/terralens/landsat-dash/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	id           TEXT PRIMARY KEY,
	year         INTEGER NOT NULL,
	fingerprint  TEXT NOT NULL,
	kind         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	payload      BLOB NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at   DATETIME,
	UNIQUE (year, fingerprint, kind)
);

CREATE TABLE IF NOT EXISTS region_stats (
	id          TEXT PRIMARY KEY,
	year        INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	status      TEXT NOT NULL,
	image_count INTEGER NOT NULL DEFAULT 0,
	ndvi_mean   REAL,
	ndvi_min    REAL,
	ndvi_max    REAL,
	temp_mean_c REAL,
	computed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (year, fingerprint)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_lookup ON artifacts(year, fingerprint, kind);
CREATE INDEX IF NOT EXISTS idx_artifacts_expires_at ON artifacts(expires_at);
CREATE INDEX IF NOT EXISTS idx_region_stats_fingerprint ON region_stats(fingerprint, year);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, year int, fingerprint string, kind model.ArtifactKind) (*model.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, year, fingerprint, kind, content_type, payload, created_at, expires_at FROM artifacts
		 WHERE year = ? AND fingerprint = ? AND kind = ?
		   AND (expires_at IS NULL OR expires_at > datetime('now'))`,
		year, fingerprint, string(kind),
	)

	var a model.Artifact
	var expiresAt sql.NullTime
	err := row.Scan(&a.ID, &a.Year, &a.Fingerprint, &a.Kind, &a.ContentType, &a.Payload, &a.CreatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get artifact")
	}
	if expiresAt.Valid {
		a.ExpiresAt = expiresAt.Time
	}
	return &a, nil
}

func (s *SQLiteStore) PutArtifact(ctx context.Context, a *model.Artifact, ttl time.Duration) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now

	var expiresAt any
	if ttl > 0 {
		a.ExpiresAt = now.Add(ttl)
		expiresAt = a.ExpiresAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, year, fingerprint, kind, content_type, payload, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (year, fingerprint, kind) DO UPDATE SET
		   content_type = excluded.content_type, payload = excluded.payload,
		   created_at = excluded.created_at, expires_at = excluded.expires_at`,
		a.ID, a.Year, a.Fingerprint, string(a.Kind), a.ContentType, a.Payload, now, expiresAt,
	)
	return eris.Wrap(err, "sqlite: put artifact")
}

func (s *SQLiteStore) DeleteExpiredArtifacts(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE expires_at IS NOT NULL AND expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired artifacts")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) GetStats(ctx context.Context, year int, fingerprint string) (*model.RegionStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT year, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at
		 FROM region_stats WHERE year = ? AND fingerprint = ?`,
		year, fingerprint,
	)
	st, err := scanStats(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get stats")
	}
	return st, nil
}

func (s *SQLiteStore) PutStats(ctx context.Context, fingerprint string, stats model.RegionStats) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertStats, statsArgs(fingerprint, stats)...)
	return eris.Wrap(err, "sqlite: put stats")
}

func (s *SQLiteStore) PutStatsBatch(ctx context.Context, fingerprint string, stats []model.RegionStats) (int64, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin stats batch")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, st := range stats {
		if _, err := tx.ExecContext(ctx, sqliteUpsertStats, statsArgs(fingerprint, st)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: put stats %d", st.Year)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit stats batch")
	}
	return n, nil
}

func (s *SQLiteStore) ListStats(ctx context.Context, filter StatsFilter) ([]model.RegionStats, error) {
	query := `SELECT year, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at
	          FROM region_stats WHERE 1=1`
	var args []any

	if filter.Fingerprint != "" {
		query += ` AND fingerprint = ?`
		args = append(args, filter.Fingerprint)
	}
	if filter.FromYear > 0 {
		query += ` AND year >= ?`
		args = append(args, filter.FromYear)
	}
	if filter.ToYear > 0 {
		query += ` AND year <= ?`
		args = append(args, filter.ToYear)
	}
	query += ` ORDER BY year ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stats")
	}
	defer rows.Close()

	var out []model.RegionStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list stats iterate")
}

// helpers

const sqliteUpsertStats = `
INSERT INTO region_stats (id, year, fingerprint, status, image_count, ndvi_mean, ndvi_min, ndvi_max, temp_mean_c, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (year, fingerprint) DO UPDATE SET
  status = excluded.status, image_count = excluded.image_count,
  ndvi_mean = excluded.ndvi_mean, ndvi_min = excluded.ndvi_min,
  ndvi_max = excluded.ndvi_max, temp_mean_c = excluded.temp_mean_c,
  computed_at = excluded.computed_at`

// statsArgs flattens a stats row into upsert arguments. Years without a
// composite store NULL metrics rather than zeros.
func statsArgs(fingerprint string, st model.RegionStats) []any {
	computedAt := st.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}

	var mean, min, max, temp any
	if st.Status == model.StatusReady {
		mean, min, max, temp = st.NDVIMean, st.NDVIMin, st.NDVIMax, st.TempMeanC
	}
	return []any{
		uuid.New().String(), st.Year, fingerprint, string(st.Status), st.ImageCount,
		mean, min, max, temp, computedAt,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStats(row scannable) (*model.RegionStats, error) {
	var st model.RegionStats
	var mean, min, max, temp sql.NullFloat64

	err := row.Scan(&st.Year, &st.Status, &st.ImageCount, &mean, &min, &max, &temp, &st.ComputedAt)
	if err != nil {
		return nil, err
	}

	if mean.Valid {
		st.NDVIMean = mean.Float64
	}
	if min.Valid {
		st.NDVIMin = min.Float64
	}
	if max.Valid {
		st.NDVIMax = max.Float64
	}
	if temp.Valid {
		st.TempMeanC = temp.Float64
	}
	return &st, nil
}
