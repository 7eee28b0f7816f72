package audit

import "time"

// Event is an immutable, append-only record of a session lifecycle change.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; sign-in and sign-out never fail because audit did.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	SessionID string `json:"session_id,omitempty" db:"session_id"`
	UserID    string `json:"user_id,omitempty" db:"user_id"`
	Email     string `json:"email,omitempty" db:"email"`

	// IPAddress is the client IP as resolved by the HTTP edge.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Reason is the revocation or sign-out reason code (backend_invalid, api_401, user).
	Reason string `json:"reason,omitempty" db:"reason"`
	// Path is the page or API path involved, when there is one.
	Path string `json:"path,omitempty" db:"path"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventSignIn         EventType = "sign_in"
	EventSignInFailed   EventType = "sign_in_failed"
	EventSignOut        EventType = "sign_out"
	EventSessionRevoked EventType = "session_revoked"
	EventAccessDenied   EventType = "access_denied"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSignIn, EventSignInFailed, EventSignOut, EventSessionRevoked, EventAccessDenied:
		return true
	}
	return false
}
