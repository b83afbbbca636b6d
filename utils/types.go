package utils

// DeviceRef identifies the remembered calibration target. It is
// replaced wholesale whenever a device is confirmed or selected, never
// mutated field by field.
type DeviceRef struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// WebSocket
type WebSocketEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type DeviceConfirmedPayload struct {
	Device DeviceRef `json:"device"`
}

type DeviceSelectedPayload struct {
	Device DeviceRef `json:"device"`
}

type CalibrationPayload struct {
	Session   string    `json:"session,omitempty"`
	Device    DeviceRef `json:"device"`
	Timestamp int64     `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}
