package store

import (
	"context"
	"errors"
	"time"
)

var ErrDeviceNotFound = errors.New("device not found")

// UnknownAddress is stored when a device registers without a local address.
const UnknownAddress = "unknown"

// DeviceRecord is a snapshot of one registry entry. Stores hand out copies;
// mutating a returned record has no effect on the registry.
type DeviceRecord struct {
	DeviceID       string
	Address        string
	ReportedStatus string
	LastSeen       time.Time
	RegisteredAt   time.Time
}

// DeviceUpdate carries the optional fields of a registration. Empty strings
// leave the stored value alone, or fall back to the defaults for a new record.
type DeviceUpdate struct {
	Address        string
	ReportedStatus string
}

// DeviceStore is the device registry. Every method is safe for concurrent
// use and applies its field changes to a record atomically.
type DeviceStore interface {
	// Upsert creates or overwrites a record and sets LastSeen to seenAt.
	// RegisteredAt is only written when the record is created.
	Upsert(ctx context.Context, deviceID string, upd DeviceUpdate, seenAt time.Time) (DeviceRecord, error)
	// Touch advances LastSeen and, when status is non-empty, ReportedStatus.
	// Returns ErrDeviceNotFound if the record does not exist.
	Touch(ctx context.Context, deviceID, status string, seenAt time.Time) (DeviceRecord, error)
	Get(ctx context.Context, deviceID string) (DeviceRecord, error)
	List(ctx context.Context) ([]DeviceRecord, error)
	Count(ctx context.Context) (int, error)
	Remove(ctx context.Context, deviceID string) error

	// RemoveIfIdle deletes the record only if its LastSeen is at or before
	// cutoff, so a heartbeat landing mid-sweep keeps the device alive.
	RemoveIfIdle(ctx context.Context, deviceID string, cutoff time.Time) (bool, error)
	// MarkOfflineIfIdle forces ReportedStatus to "offline" under the same
	// condition. It reports whether the status actually changed.
	MarkOfflineIfIdle(ctx context.Context, deviceID string, cutoff time.Time) (bool, error)
}
