package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terralens/landsat-dash/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testArtifact(year int, kind model.ArtifactKind) *model.Artifact {
	return &model.Artifact{
		Year:        year,
		Fingerprint: "fp-1",
		Kind:        kind,
		ContentType: "image/png",
		Payload:     []byte{0x89, 0x50, 0x4e, 0x47},
	}
}

func readyStats(year int) model.RegionStats {
	return model.RegionStats{
		Year:       year,
		Status:     model.StatusReady,
		ImageCount: 14,
		NDVIMean:   0.42,
		NDVIMin:    -0.08,
		NDVIMax:    0.87,
		TempMeanC:  24.3,
		ComputedAt: time.Now().UTC(),
	}
}

// --- Artifacts ---

func TestSQLite_Artifact_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testArtifact(2020, model.KindThumbnail)
	err := st.PutArtifact(ctx, a, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	got, err := st.GetArtifact(ctx, 2020, "fp-1", model.KindThumbnail)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, a.Payload, got.Payload)
	assert.False(t, got.ExpiresAt.IsZero())
}

func TestSQLite_Artifact_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	got, err := st.GetArtifact(ctx, 2020, "fp-unknown", model.KindThumbnail)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Artifact_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Already expired on write (-1 hour TTL).
	err := st.PutArtifact(ctx, testArtifact(2020, model.KindThumbnail), -time.Hour)
	require.NoError(t, err)

	got, err := st.GetArtifact(ctx, 2020, "fp-1", model.KindThumbnail)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Artifact_NoTTLNeverExpires(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.PutArtifact(ctx, testArtifact(2020, model.KindChart), 0)
	require.NoError(t, err)

	got, err := st.GetArtifact(ctx, 2020, "fp-1", model.KindChart)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ExpiresAt.IsZero())
}

func TestSQLite_Artifact_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testArtifact(2020, model.KindThumbnail)
	require.NoError(t, st.PutArtifact(ctx, a, time.Hour))

	b := testArtifact(2020, model.KindThumbnail)
	b.Payload = []byte("updated")
	require.NoError(t, st.PutArtifact(ctx, b, time.Hour))

	got, err := st.GetArtifact(ctx, 2020, "fp-1", model.KindThumbnail)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("updated"), got.Payload)
}

func TestSQLite_Artifact_KindsAreIndependent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutArtifact(ctx, testArtifact(2020, model.KindThumbnail), time.Hour))

	got, err := st.GetArtifact(ctx, 2020, "fp-1", model.KindChart)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_DeleteExpiredArtifacts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutArtifact(ctx, testArtifact(2019, model.KindThumbnail), -time.Hour))
	require.NoError(t, st.PutArtifact(ctx, testArtifact(2020, model.KindThumbnail), time.Hour))
	require.NoError(t, st.PutArtifact(ctx, testArtifact(2021, model.KindChart), 0))

	deleted, err := st.DeleteExpiredArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	// Fresh and never-expiring entries survive.
	got, err := st.GetArtifact(ctx, 2020, "fp-1", model.KindThumbnail)
	require.NoError(t, err)
	assert.NotNil(t, got)
	got, err = st.GetArtifact(ctx, 2021, "fp-1", model.KindChart)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

// --- Region stats ---

func TestSQLite_Stats_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutStats(ctx, "fp-1", readyStats(2020)))

	got, err := st.GetStats(ctx, 2020, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusReady, got.Status)
	assert.Equal(t, 14, got.ImageCount)
	assert.InDelta(t, 0.42, got.NDVIMean, 1e-9)
	assert.InDelta(t, -0.08, got.NDVIMin, 1e-9)
	assert.InDelta(t, 24.3, got.TempMeanC, 1e-9)
}

func TestSQLite_Stats_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	got, err := st.GetStats(ctx, 2020, "fp-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Stats_NoDataRowStoresNulls(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	empty := model.RegionStats{Year: 2017, Status: model.StatusNoData, ComputedAt: time.Now().UTC()}
	require.NoError(t, st.PutStats(ctx, "fp-1", empty))

	got, err := st.GetStats(ctx, 2017, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusNoData, got.Status)
	assert.Zero(t, got.NDVIMean)
	assert.Zero(t, got.TempMeanC)
}

func TestSQLite_Stats_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutStats(ctx, "fp-1", readyStats(2020)))

	updated := readyStats(2020)
	updated.NDVIMean = 0.5
	updated.ImageCount = 20
	require.NoError(t, st.PutStats(ctx, "fp-1", updated))

	got, err := st.GetStats(ctx, 2020, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.5, got.NDVIMean, 1e-9)
	assert.Equal(t, 20, got.ImageCount)
}

func TestSQLite_Stats_Batch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	batch := []model.RegionStats{readyStats(2013), readyStats(2014), readyStats(2015)}
	n, err := st.PutStatsBatch(ctx, "fp-1", batch)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := st.ListStats(ctx, StatsFilter{Fingerprint: "fp-1"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSQLite_Stats_BatchEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.PutStatsBatch(ctx, "fp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSQLite_ListStats_YearRangeAndOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, year := range []int{2016, 2013, 2015, 2014} {
		require.NoError(t, st.PutStats(ctx, "fp-1", readyStats(year)))
	}
	// A different fingerprint must not leak into results.
	require.NoError(t, st.PutStats(ctx, "fp-other", readyStats(2014)))

	rows, err := st.ListStats(ctx, StatsFilter{Fingerprint: "fp-1", FromYear: 2014, ToYear: 2015})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2014, rows[0].Year)
	assert.Equal(t, 2015, rows[1].Year)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Migrate already ran in the helper; a second run must not error.
	err := st.Migrate(ctx)
	require.NoError(t, err)
}
