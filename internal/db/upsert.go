package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a bulk INSERT ... ON CONFLICT target.
type Upsert struct {
	Table    string
	Columns  []string // columns being inserted
	Conflict []string // columns forming the unique constraint
	Update   []string // columns rewritten on conflict
}

// CopyUpsert stages rows in a temp table with COPY, then folds them into the
// target with a single INSERT ... ON CONFLICT DO UPDATE. The staging table is
// dropped on commit.
func CopyUpsert(ctx context.Context, pool Pool, u Upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if u.Table == "" || len(u.Columns) == 0 || len(u.Conflict) == 0 || len(u.Update) == 0 {
		return 0, eris.New("db: upsert: table, columns, conflict and update are all required")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := "_staging_" + u.Table

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		ident(staging), ident(u.Table),
	)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into staging table for %s", u.Table)
	}

	set := make([]string, len(u.Update))
	for i, col := range u.Update {
		set[i] = ident(col) + " = EXCLUDED." + ident(col)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		ident(u.Table), idents(u.Columns), idents(u.Columns), ident(staging),
		idents(u.Conflict), strings.Join(set, ", "),
	))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", u.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

func idents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}
