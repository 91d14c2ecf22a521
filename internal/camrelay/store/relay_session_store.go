package store

import (
	"context"
	"time"
)

type RelayKind string

const (
	RelayStream  RelayKind = "stream"
	RelayCapture RelayKind = "capture"
)

type RelayOutcome string

const (
	OutcomeOK                  RelayOutcome = "ok"
	OutcomeClientClosed        RelayOutcome = "client_closed"
	OutcomeBadRequest          RelayOutcome = "bad_request"
	OutcomeNotFound            RelayOutcome = "not_found"
	OutcomeOffline             RelayOutcome = "offline"
	OutcomeUpstreamUnavailable RelayOutcome = "upstream_unavailable"
	OutcomeUpstreamFailed      RelayOutcome = "upstream_failed"
)

// RelaySessionRecord is one proxy attempt, successful or not.
type RelaySessionRecord struct {
	ID        string
	DeviceID  string
	Kind      RelayKind
	StartedAt time.Time
	EndedAt   time.Time
	Bytes     int64
	Outcome   RelayOutcome
	Error     string
}

// RelaySessionStore is an append-only log of relay sessions.
type RelaySessionStore interface {
	RecordSession(ctx context.Context, rec RelaySessionRecord) error
	// ListSessions returns the newest sessions first. An empty deviceID
	// matches every device.
	ListSessions(ctx context.Context, deviceID string, limit int) ([]RelaySessionRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
