package audit

import (
	"context"
	"errors"
	"time"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records session lifecycle events.
// Callers treat it as best-effort and log failures.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Type.Valid() {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// LogSession records an event about an established session.
func (s *Service) LogSession(ctx context.Context, t EventType, sess auth.Session, reason string) error {
	return s.Append(ctx, Event{
		Type:      t,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Email:     sess.Email,
		Reason:    reason,
	})
}

// LogSignInFailed records a rejected sign-in. The password never reaches here.
func (s *Service) LogSignInFailed(ctx context.Context, email, reason string) error {
	return s.Append(ctx, Event{Type: EventSignInFailed, Email: email, Reason: reason})
}

// DenialRecorder adapts the service to the role gate's denial hook.
type DenialRecorder struct {
	Audit *Service
}

func (d DenialRecorder) RecordDenied(ctx context.Context, sess auth.Session, path string) {
	if d.Audit == nil {
		return
	}
	err := d.Audit.Append(ctx, Event{
		Type:      EventAccessDenied,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Email:     sess.Email,
		Path:      path,
		Reason:    "forbidden",
	})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "type", EventAccessDenied, "path", path, "err", err)
	}
}
