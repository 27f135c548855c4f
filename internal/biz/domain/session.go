package domain

import "time"

// SessionStatus is the WhatsApp session lifecycle state
type SessionStatus string

const (
	SessionInitializing SessionStatus = "INITIALIZING"
	SessionQRPending    SessionStatus = "QR_PENDING"
	SessionReady        SessionStatus = "READY"
	SessionDisconnected SessionStatus = "DISCONNECTED"
	SessionAuthFailure  SessionStatus = "AUTH_FAILURE"
	SessionNotAvailable SessionStatus = "NOT_AVAILABLE"
)

// SessionEventType names a status stream event
type SessionEventType string

const (
	EventQR            SessionEventType = "qr"
	EventAuthenticated SessionEventType = "authenticated"
	EventReady         SessionEventType = "ready"
	EventAuthFailure   SessionEventType = "auth_failure"
	EventDisconnected  SessionEventType = "disconnected"
	EventMessage       SessionEventType = "message"
	EventStatus        SessionEventType = "status"
	EventError         SessionEventType = "error"
)

// LogoutReason is the disconnect reason that suppresses reconnects
const LogoutReason = "LOGOUT"

// SessionEvent is emitted by a session driver and relayed to stream listeners
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	QRCode    string           `json:"qr,omitempty"` // raw pairing payload or data URL
	Reason    string           `json:"reason,omitempty"`
	Message   *Message         `json:"message,omitempty"`
	Status    *SessionState    `json:"status,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SessionState is the queryable session snapshot
type SessionState struct {
	Status          SessionStatus `json:"status"`
	IsReady         bool          `json:"is_ready"`
	IsAuthenticated bool          `json:"is_authenticated"`
	IsInitializing  bool          `json:"is_initializing"`
	HasClient       bool          `json:"has_client"`
	QRCode          string        `json:"qr_code,omitempty"`
	Error           string        `json:"error,omitempty"`
}
