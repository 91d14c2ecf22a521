package httpapi

import (
	"time"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

func relaySessionToView(rec store.RelaySessionRecord) types.RelaySessionView {
	return types.RelaySessionView{
		ID:        rec.ID,
		DeviceID:  rec.DeviceID,
		Kind:      string(rec.Kind),
		StartedAt: rec.StartedAt.UTC().Format(time.RFC3339Nano),
		EndedAt:   rec.EndedAt.UTC().Format(time.RFC3339Nano),
		Bytes:     rec.Bytes,
		Outcome:   string(rec.Outcome),
		Error:     rec.Error,
	}
}
