package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	dbpkg "github.com/BrandonDHaskell/camrelay/internal/db"
)

// RelaySessionStore persists the relay session log in the relay_sessions
// table. Reads go straight to the pool; writes go through the Worker.
type RelaySessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRelaySessionStore(db *sql.DB, writer *dbpkg.Worker) *RelaySessionStore {
	return &RelaySessionStore{db: db, writer: writer}
}

func (s *RelaySessionStore) RecordSession(ctx context.Context, rec store.RelaySessionRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("RecordSession: session id is required")
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.EndedAt
	}

	var errText any
	if rec.Error != "" {
		errText = rec.Error
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO relay_sessions(
  session_id, device_id, kind, started_at_ms, ended_at_ms, bytes, outcome, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.DeviceID, string(rec.Kind),
			rec.StartedAt.UTC().UnixMilli(), rec.EndedAt.UTC().UnixMilli(),
			rec.Bytes, string(rec.Outcome), errText,
		); err != nil {
			return fmt.Errorf("RecordSession insert: %w", err)
		}
		return nil
	})
}

func (s *RelaySessionStore) ListSessions(ctx context.Context, deviceID string, limit int) ([]store.RelaySessionRecord, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if deviceID == "" {
		rows, err = s.db.QueryContext(ctx, `
SELECT session_id, device_id, kind, started_at_ms, ended_at_ms, bytes, outcome, error
FROM relay_sessions
ORDER BY started_at_ms DESC
LIMIT ?;
`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT session_id, device_id, kind, started_at_ms, ended_at_ms, bytes, outcome, error
FROM relay_sessions
WHERE device_id = ?
ORDER BY started_at_ms DESC
LIMIT ?;
`, deviceID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("ListSessions: %w", err)
	}
	defer rows.Close()

	var out []store.RelaySessionRecord
	for rows.Next() {
		var (
			rec                store.RelaySessionRecord
			kind, outcome      string
			startedMs, endedMs int64
			errText            sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &kind, &startedMs, &endedMs,
			&rec.Bytes, &outcome, &errText); err != nil {
			return nil, fmt.Errorf("ListSessions scan: %w", err)
		}
		rec.Kind = store.RelayKind(kind)
		rec.Outcome = store.RelayOutcome(outcome)
		rec.StartedAt = time.UnixMilli(startedMs).UTC()
		rec.EndedAt = time.UnixMilli(endedMs).UTC()
		rec.Error = errText.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSessions rows: %w", err)
	}
	return out, nil
}

// PruneOlderThan deletes sessions that ended before cutoff and returns the
// number of rows removed. Uses idx_relay_sessions_ended.
func (s *RelaySessionStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM relay_sessions
WHERE ended_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
