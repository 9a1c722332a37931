package db

import (
	"context"
	"path/filepath"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "index.db")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, openTestDB(t))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "sqlite3", db.DriverName())
	assert.Equal(t, sq.Question, Placeholder(db))

	_, err = Open(ctx, "mysql://localhost/db")
	assert.ErrorContains(t, err, "unsupported database scheme")
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openTestDB(t))
	require.NoError(t, err)
	defer db.Close()

	ran, err := MigrateUp(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial_schema.sql"}, ran)

	ran, err = MigrateUp(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, ran)

	statuses, err := MigrateStatus(ctx, db)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
	assert.NotNil(t, statuses[0].AppliedAt)
}

func TestMigrateStatusPending(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openTestDB(t))
	require.NoError(t, err)
	defer db.Close()

	statuses, err := MigrateStatus(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	assert.False(t, statuses[0].Applied)
}

func TestChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openTestDB(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = MigrateUp(ctx, db)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE migrations SET checksum = 'tampered'")
	require.NoError(t, err)

	_, err = MigrateUp(ctx, db)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- leading comment\nCREATE TABLE a (x INT);\n\n-- note\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openTestDB(t))
	require.NoError(t, err)
	defer db.Close()
	_, err = MigrateUp(ctx, db)
	require.NoError(t, err)

	q, err := LoadQueries(db)
	require.NoError(t, err)

	_, err = q.Exec(ctx, "upsert-content", "/m/a.jpg", "a.jpg", "image/jpeg", 10, 100, 100, 1, "m")
	require.NoError(t, err)
	_, err = q.Exec(ctx, "upsert-content", "/m/a.jpg", "a.jpg", "image/jpeg", 20, 200, 200, 1, "m")
	require.NoError(t, err)

	var count int
	require.NoError(t, q.Get(ctx, "count-contents", &count))
	assert.Equal(t, 1, count)

	var size, added int64
	require.NoError(t, db.QueryRow("SELECT _size, date_added FROM files").Scan(&size, &added))
	assert.Equal(t, int64(20), size)
	assert.Equal(t, int64(100), added, "upsert keeps the original date_added")

	var paths []string
	require.NoError(t, q.Select(ctx, "list-paths-under", &paths, "/m/%"))
	assert.Equal(t, []string{"/m/a.jpg"}, paths)

	_, err = q.Exec(ctx, "no-such-query")
	assert.ErrorContains(t, err, "query not found")
}
