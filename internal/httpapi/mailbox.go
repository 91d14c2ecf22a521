package httpapi

import (
	"errors"
	"net/http"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

var ackOK = types.AckResponse{Status: "ok"}

func (s *Server) handleSetCommand(w http.ResponseWriter, r *http.Request) {
	var cmd types.CommandState
	if !s.readJSON(w, r, &cmd) {
		return
	}
	if err := s.mailbox.SetCommand(r.Context(), r.PathValue("device_id"), cmd); err != nil {
		s.mailboxError(w, "set command", err)
		return
	}
	writeJSON(w, http.StatusOK, ackOK)
}

func (s *Server) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := s.mailbox.Command(r.Context(), r.PathValue("device_id"))
	if err != nil {
		s.mailboxError(w, "get command", err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (s *Server) handlePushFrame(w http.ResponseWriter, r *http.Request) {
	var push types.FramePush
	if !s.readJSON(w, r, &push) {
		return
	}
	if err := s.mailbox.PushFrame(r.Context(), r.PathValue("device_id"), push.Frame); err != nil {
		s.mailboxError(w, "push frame", err)
		return
	}
	writeJSON(w, http.StatusOK, ackOK)
}

func (s *Server) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := s.mailbox.LatestFrame(r.Context(), r.PathValue("device_id"))
	if err != nil {
		if errors.Is(err, service.ErrNoFrame) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No frame"})
			return
		}
		s.mailboxError(w, "get frame", err)
		return
	}
	writeJSON(w, http.StatusOK, types.FramePush{Frame: frame})
}

func (s *Server) mailboxError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrInvalidDeviceID) {
		writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
		return
	}
	s.internalError(w, op, err)
}
