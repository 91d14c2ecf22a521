package proxy

import (
	"errors"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

var (
	ErrInvalidDeviceID     = errors.New("device_id is required")
	ErrDeviceNotFound      = store.ErrDeviceNotFound
	ErrDeviceOffline       = errors.New("device offline")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRelayAborted means the upstream failed after the response headers
	// were sent. The caller can no longer change the status and should
	// abort the client connection instead.
	ErrRelayAborted = errors.New("relay aborted")
)

// outcomeOf maps the result of a relay attempt onto the session log.
func outcomeOf(err error, clientGone bool) store.RelayOutcome {
	switch {
	case err == nil && clientGone:
		return store.OutcomeClientClosed
	case err == nil:
		return store.OutcomeOK
	case errors.Is(err, ErrInvalidDeviceID):
		return store.OutcomeBadRequest
	case errors.Is(err, ErrDeviceNotFound):
		return store.OutcomeNotFound
	case errors.Is(err, ErrDeviceOffline):
		return store.OutcomeOffline
	case errors.Is(err, ErrUpstreamUnavailable):
		return store.OutcomeUpstreamUnavailable
	default:
		return store.OutcomeUpstreamFailed
	}
}
