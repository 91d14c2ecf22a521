package types

// RelaySessionView is one entry of the relay session log.
type RelaySessionView struct {
	ID        string `json:"id"`
	DeviceID  string `json:"device_id"`
	Kind      string `json:"kind"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
	Bytes     int64  `json:"bytes"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

type RelaySessionListResponse struct {
	Total    int                `json:"total"`
	Sessions []RelaySessionView `json:"sessions"`
}

type ActiveRelaysResponse struct {
	Active int64 `json:"active"`
}
