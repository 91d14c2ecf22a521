package store

import (
	"context"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

// MailboxStore keeps the per-device command state and last pushed frame.
// It is independent of the device registry: entries are created on first
// use and never evicted.
type MailboxStore interface {
	SetCommand(ctx context.Context, deviceID string, cmd types.CommandState) error
	GetCommand(ctx context.Context, deviceID string) (types.CommandState, error)
	SetFrame(ctx context.Context, deviceID, frame string) error
	// GetFrame reports false when no frame has been pushed yet.
	GetFrame(ctx context.Context, deviceID string) (string, bool, error)
}
