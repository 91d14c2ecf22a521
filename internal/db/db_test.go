package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/camrelay/internal/db"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relay.db")

	conn, err := db.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var n int
	err = conn.QueryRow(`SELECT COUNT(*) FROM relay_sessions`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Re-running is a no-op.
	require.NoError(t, db.Migrate(context.Background(), conn))

	var versions int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&versions))
	assert.Equal(t, 1, versions)

	v, err := db.SchemaVersion(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := db.Open(context.Background(), "")
	assert.Error(t, err)
}

func TestWorker_CommitsAndRollsBack(t *testing.T) {
	conn, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	w := db.NewWorker(conn)
	ctx := context.Background()

	err = w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO relay_sessions(session_id, device_id, kind, started_at_ms, ended_at_ms, outcome)
VALUES ('s1', 'cam-01', 'stream', 1, 2, 'ok');`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM relay_sessions;`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM relay_sessions`).Scan(&n))
	assert.Equal(t, 1, n, "failed job must roll back")

	w.Close()
	w.Close()

	err = w.Do(ctx, func(context.Context, *sql.Tx) error { return nil })
	assert.ErrorIs(t, err, db.ErrWorkerClosed)
}
