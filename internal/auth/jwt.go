package auth

import (
	"errors"
	"time"

	"hackathon-gateway/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Manager signs and verifies the gateway's session and refresh tokens.
//
// A Manager with an empty secret is valid to construct; it reports
// ErrSecretNotConfigured on first use instead.
type Manager struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.SessionConfig) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Manager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		ttl:        ttl,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) TTL() time.Duration        { return m.ttl }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

type TokenPair struct {
	SessionToken     string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

/* ===================== ISSUE TOKENS ===================== */

// Issue signs a session token and a refresh token for s.
// s.ID is required; s.ExpiresAt is ignored and recomputed from now.
func (m *Manager) Issue(now time.Time, s Session) (TokenPair, error) {
	if len(m.secret) == 0 {
		return TokenPair{}, ErrSecretNotConfigured
	}
	if s.ID == "" {
		return TokenPair{}, ErrSessionInvalid
	}

	exp := now.Add(m.ttl)
	refreshExp := now.Add(m.refreshTTL)

	session, err := m.sign(Claims{
		RegisteredClaims: m.registered(now, exp, s.ID),
		UserID:           s.UserID,
		Email:            s.Email,
		Name:             s.DisplayName,
		Roles:            s.Roles,
		AccessToken:      s.AccessToken,
		TokenType:        TokenTypeSession,
	})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := m.sign(Claims{
		RegisteredClaims: m.registered(now, refreshExp, s.ID),
		UserID:           s.UserID,
		TokenType:        TokenTypeRefresh,
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		SessionToken:     session,
		RefreshToken:     refresh,
		ExpiresAt:        exp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

/* ===================== VERIFY TOKEN ===================== */

func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	if len(m.secret) == 0 {
		return Claims{}, ErrSecretNotConfigured
	}

	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second), // clock skew tolerance
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}

	if claims.TokenType != expected {
		return Claims{}, errors.New("token_type mismatch")
	}
	if claims.ID == "" {
		return Claims{}, errors.New("session id missing")
	}
	if expected == TokenTypeSession && claims.AccessToken == "" {
		return Claims{}, errors.New("access token missing in session token")
	}

	return claims, nil
}

// SessionFromClaims rebuilds the session carried by a verified session token.
func SessionFromClaims(c Claims) Session {
	s := Session{
		ID:          c.ID,
		UserID:      c.UserID,
		Email:       c.Email,
		DisplayName: c.Name,
		Roles:       c.Roles,
		AccessToken: c.AccessToken,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		s.CreatedAt = c.IssuedAt.Time
	}
	return s
}

/* ===================== INTERNAL ISSUE ===================== */

func (m *Manager) registered(now, exp time.Time, id string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        id,
	}
}

func (m *Manager) sign(c Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(m.secret)
}
