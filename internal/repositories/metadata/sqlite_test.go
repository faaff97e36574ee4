package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestGetSet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, ok, err := r.Get(ctx, SaveMarkerKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, SaveMarkerKey, "20240101000000000"))
	require.NoError(t, r.Set(ctx, SaveMarkerKey, "20240102000000000"))

	v, ok, err := r.Get(ctx, SaveMarkerKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20240102000000000", v)
}

func TestErrors_Wrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewSQLiteRepository(db)
	ctx := context.Background()
	boom := errors.New("locked")

	mock.ExpectQuery(`SELECT value FROM metadata`).WillReturnError(boom)
	_, _, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "metadata[k]")

	mock.ExpectExec(`INSERT INTO metadata`).WillReturnError(boom)
	require.ErrorIs(t, r.Set(ctx, "k", "v"), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
