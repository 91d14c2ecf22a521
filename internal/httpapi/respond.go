package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const defaultMaxBodyBytes = 50 << 20

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: code, Message: msg})
}

// readJSON decodes the bounded request body into v. On failure it has
// already answered and returns false. Unknown fields are ignored since
// firmware revisions add telemetry freely.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.badBody(w, err, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) badBody(w http.ResponseWriter, err error, code, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	if errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, code, "empty request body")
		return
	}
	writeError(w, http.StatusBadRequest, code, msg)
}
