package signin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hackathon-gateway/internal/audit"
	"hackathon-gateway/internal/auth"
	"hackathon-gateway/internal/backend"
	"hackathon-gateway/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
)

// Reason codes recorded on sign-out and revocation.
const (
	ReasonUser           = "user"
	ReasonBackendInvalid = "backend_invalid"
)

// Backend is the slice of the backend client the exchange needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	ProfileWithToken(ctx context.Context, token string) (backend.Profile, error)
}

// Service turns backend credentials into gateway sessions and ends them.
type Service struct {
	Backend  Backend
	Tokens   *auth.Manager
	Registry auth.Registry
	Audit    *audit.Service
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *slog.Logger { return logger.Or(s.Logger) }

// SignIn exchanges credentials for a backend token, reads the profile and
// registers a new session.
//
// A profile failure does not fail sign-in: the session falls back to the
// email as display name and carries no roles.
func (s *Service) SignIn(ctx context.Context, email, password string) (auth.Session, auth.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return auth.Session{}, auth.TokenPair{}, ErrMissingCredentials
	}

	token, err := s.Backend.Login(ctx, email, password)
	if err != nil {
		var te *backend.TransportError
		if errors.As(err, &te) || errors.Is(err, backend.ErrBaseURLNotConfigured) {
			return auth.Session{}, auth.TokenPair{}, fmt.Errorf("backend login: %w", err)
		}
		s.recordFailure(ctx, email, "invalid_credentials")
		return auth.Session{}, auth.TokenPair{}, ErrInvalidCredentials
	}

	now := s.now()
	sess := auth.Session{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: email,
		Roles:       []string{},
		AccessToken: token,
		CreatedAt:   now,
	}

	profile, err := s.Backend.ProfileWithToken(ctx, token)
	if err != nil {
		s.log().Warn("profile fetch failed; continuing with minimal session", "email", email, "err", err)
	} else {
		sess.UserID = profile.ID
		if profile.Email != "" {
			sess.Email = profile.Email
		}
		sess.DisplayName = profile.DisplayName()
		if sess.DisplayName == "" {
			sess.DisplayName = sess.Email
		}
		if len(profile.Roles) > 0 {
			sess.Roles = profile.Roles
		}
	}

	pair, err := s.Tokens.Issue(now, sess)
	if err != nil {
		return auth.Session{}, auth.TokenPair{}, fmt.Errorf("issue session: %w", err)
	}
	sess.ExpiresAt = pair.ExpiresAt

	if s.Registry != nil {
		if err := s.Registry.Put(ctx, sess, s.Tokens.RefreshTTL()); err != nil {
			return auth.Session{}, auth.TokenPair{}, fmt.Errorf("register session: %w", err)
		}
	}

	s.record(ctx, audit.EventSignIn, sess, "")
	s.log().Info("signed in", "session_id", sess.ID, "user_id", sess.UserID, "role", sess.PrimaryRole())
	return sess, pair, nil
}

// SignOut ends a session the user asked to leave.
func (s *Service) SignOut(ctx context.Context, sess auth.Session, reason string) error {
	if reason == "" {
		reason = ReasonUser
	}
	if s.Registry != nil && sess.ID != "" {
		if err := s.Registry.Revoke(ctx, sess.ID, reason); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}
	s.record(ctx, audit.EventSignOut, sess, reason)
	return nil
}

// ForceSignOut revokes a session the gateway found to be dead. Repeated
// calls for the same session are no-ops.
func (s *Service) ForceSignOut(ctx context.Context, sessionID, reason string) error {
	if sessionID == "" || s.Registry == nil {
		return nil
	}
	if _, revoked, err := s.Registry.Revoked(ctx, sessionID); err == nil && revoked {
		return nil
	}

	sess, err := s.Registry.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		return fmt.Errorf("load session: %w", err)
	}
	sess.ID = sessionID

	if err := s.Registry.Revoke(ctx, sessionID, reason); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.record(ctx, audit.EventSessionRevoked, sess, reason)
	s.log().Info("session revoked", "session_id", sessionID, "reason", reason)
	return nil
}

// Terminate lets the backend client's 401 interceptor end sessions.
func (s *Service) Terminate(ctx context.Context, t backend.Termination) {
	if err := s.ForceSignOut(ctx, t.SessionID, t.Reason); err != nil {
		s.log().Error("forced sign-out failed", "session_id", t.SessionID, "err", err)
	}
}

// Refresh re-issues tokens for a live session. The session ID is kept.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.Session, auth.TokenPair, error) {
	now := s.now()
	claims, err := s.Tokens.Verify(refreshToken, auth.TokenTypeRefresh, now)
	if err != nil {
		if errors.Is(err, auth.ErrSecretNotConfigured) {
			return auth.Session{}, auth.TokenPair{}, err
		}
		return auth.Session{}, auth.TokenPair{}, ErrSessionExpired
	}
	if s.Registry == nil {
		return auth.Session{}, auth.TokenPair{}, ErrSessionExpired
	}

	sess, err := s.Registry.Get(ctx, claims.ID)
	if errors.Is(err, auth.ErrSessionNotFound) {
		return auth.Session{}, auth.TokenPair{}, ErrSessionExpired
	}
	if err != nil {
		return auth.Session{}, auth.TokenPair{}, fmt.Errorf("load session: %w", err)
	}

	pair, err := s.Tokens.Issue(now, sess)
	if err != nil {
		return auth.Session{}, auth.TokenPair{}, fmt.Errorf("issue session: %w", err)
	}
	sess.ExpiresAt = pair.ExpiresAt
	if err := s.Registry.Put(ctx, sess, s.Tokens.RefreshTTL()); err != nil {
		return auth.Session{}, auth.TokenPair{}, fmt.Errorf("register session: %w", err)
	}
	return sess, pair, nil
}

func (s *Service) record(ctx context.Context, t audit.EventType, sess auth.Session, reason string) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.LogSession(ctx, t, sess, reason); err != nil {
		s.log().Warn("audit append failed", "type", t, "err", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, email, reason string) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.LogSignInFailed(ctx, email, reason); err != nil {
		s.log().Warn("audit append failed", "type", audit.EventSignInFailed, "err", err)
	}
}
