package types

type RegisterRequest struct {
	DeviceID string `json:"device_id"`
	LocalIP  string `json:"local_ip,omitempty"`
	Status   string `json:"status,omitempty"`
}

type RegisterResponse struct {
	Success   bool   `json:"success"`
	DeviceID  string `json:"device_id"`
	StreamURL string `json:"stream_url"`
	Message   string `json:"message"`
}

type HeartbeatRequest struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status,omitempty"`
}

type HeartbeatResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeviceView is the client-facing device representation. Status and
// IsOnline are derived from LastSeen at read time.
type DeviceView struct {
	DeviceID     string `json:"device_id"`
	LocalIP      string `json:"local_ip"`
	Status       string `json:"status"`
	IsOnline     bool   `json:"is_online"`
	LastSeen     string `json:"last_seen"`
	RegisteredAt string `json:"registered_at"`
}

type DeviceListResponse struct {
	Total   int          `json:"total"`
	Devices []DeviceView `json:"devices"`
}

type ServiceStatus struct {
	Status  string  `json:"status"`
	Service string  `json:"service"`
	Devices int     `json:"devices"`
	Uptime  float64 `json:"uptime"` // seconds
}
