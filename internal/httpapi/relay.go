package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/proxy"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

const (
	defaultSessionLimit = 100
	maxSessionLimit     = 1000
)

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.relayError(w, r, s.gateway.Stream(w, r, r.PathValue("device_id")))
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	s.relayError(w, r, s.gateway.Capture(w, r, r.PathValue("device_id")))
}

// relayError answers a failed relay. The gateway has already logged it.
func (s *Server) relayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
	case errors.Is(err, proxy.ErrRelayAborted):
		// Headers are out; only dropping the connection tells the client
		// the stream is broken.
		panic(http.ErrAbortHandler)
	case errors.Is(err, proxy.ErrInvalidDeviceID), errors.Is(err, service.ErrInvalidDeviceID):
		writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
	case errors.Is(err, proxy.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "device_not_found", "Device not found")
	case errors.Is(err, proxy.ErrDeviceOffline):
		writeError(w, http.StatusServiceUnavailable, "device_offline", "Device offline")
	case errors.Is(err, proxy.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "Camera not reachable")
	default:
		s.logger.Error("relay failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func (s *Server) handleListRelays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultSessionLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxSessionLimit)
	}

	recs, err := s.sessions.ListSessions(r.Context(), q.Get("device_id"), limit)
	if err != nil {
		s.internalError(w, "list relay sessions", err)
		return
	}

	views := make([]types.RelaySessionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, relaySessionToView(rec))
	}
	writeJSON(w, http.StatusOK, types.RelaySessionListResponse{Total: len(views), Sessions: views})
}

func (s *Server) handleActiveRelays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.ActiveRelaysResponse{Active: s.gateway.ActiveRelays()})
}
