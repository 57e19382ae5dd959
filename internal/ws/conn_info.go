package ws

import "time"

// ConnInfo captures per-connection metadata for logging and diagnostics.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
