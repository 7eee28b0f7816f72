package auth

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrSecretNotConfigured = errors.New("auth: SESSION_SECRET is not configured")
	ErrSessionInvalid      = errors.New("auth: session invalid")
	ErrSessionNotFound     = errors.New("auth: session not found")
)

// Session is the gateway-held record of the signed-in user.
//
// AccessToken is the backend bearer token. It is the only credential the
// gateway presents to the backend and it never leaves the gateway in a
// response body (see View).
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Roles       []string  `json:"roles"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrimaryRole is the first role, or "" when the profile carried none.
func (s Session) PrimaryRole() string {
	if len(s.Roles) == 0 {
		return ""
	}
	return s.Roles[0]
}

func (s Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// SessionView is the browser-facing projection of a Session.
type SessionView struct {
	User      UserView  `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserView struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles"`
}

func (s Session) View() SessionView {
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	return SessionView{
		User: UserView{
			ID:    s.UserID,
			Email: s.Email,
			Name:  s.DisplayName,
			Role:  s.PrimaryRole(),
			Roles: roles,
		},
		ExpiresAt: s.ExpiresAt,
	}
}
