package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsUpsert() Upsert {
	return Upsert{
		Table:    "region_stats",
		Columns:  []string{"year", "fingerprint", "ndvi_mean"},
		Conflict: []string{"year", "fingerprint"},
		Update:   []string{"ndvi_mean"},
	}
}

func TestCopyUpsert_EmptyRows(t *testing.T) {
	n, err := CopyUpsert(context.TODO(), nil, statsUpsert(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyUpsert_IncompleteSpec(t *testing.T) {
	specs := []Upsert{
		{Columns: []string{"year"}, Conflict: []string{"year"}, Update: []string{"year"}},
		{Table: "region_stats", Conflict: []string{"year"}, Update: []string{"year"}},
		{Table: "region_stats", Columns: []string{"year"}, Update: []string{"year"}},
		{Table: "region_stats", Columns: []string{"year"}, Conflict: []string{"year"}},
	}
	for _, spec := range specs {
		_, err := CopyUpsert(context.TODO(), nil, spec, [][]any{{2020}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all required")
	}
}

func TestCopyUpsert_FullFlow(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_region_stats"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_region_stats"}, []string{"year", "fingerprint", "ndvi_mean"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "region_stats" .+ ON CONFLICT \("year", "fingerprint"\) DO UPDATE SET "ndvi_mean" = EXCLUDED\."ndvi_mean"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{2020, "fp", 0.41},
		{2021, "fp", 0.44},
	}
	n, err := CopyUpsert(context.Background(), mock, statsUpsert(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_region_stats"}, []string{"year", "fingerprint", "ndvi_mean"}).
		WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	_, err = CopyUpsert(context.Background(), mock, statsUpsert(), [][]any{{2020, "fp", 0.4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into staging table for region_stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdents(t *testing.T) {
	assert.Equal(t, `"region_stats"`, ident("region_stats"))
	assert.Equal(t, `"year", "fingerprint", "ndvi_mean"`, idents([]string{"year", "fingerprint", "ndvi_mean"}))
}
