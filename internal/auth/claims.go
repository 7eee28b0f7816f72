package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeSession TokenType = "session"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for gateway cookies.
// The JWT ID doubles as the session ID so registry lookups need no extra claim.
// Refresh tokens carry only the session ID and user ID; roles and the backend
// bearer token live in session tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	TokenType   TokenType `json:"token_type"`
}
