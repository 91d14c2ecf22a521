package types

import "encoding/json"

// CommandState is the last command set pushed for a device. Values are
// kept verbatim; the relay never interprets them.
type CommandState struct {
	Servo json.RawMessage `json:"servo,omitempty"`
	WiFi  json.RawMessage `json:"wifi,omitempty"`
	DHT   json.RawMessage `json:"DHT,omitempty"`
}

type FramePush struct {
	Frame string `json:"frame"`
}

type AckResponse struct {
	Status string `json:"status"`
}
