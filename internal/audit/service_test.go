package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/pkg/logger"
)

func TestService_AppendRejectsUnknownType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error for empty type")
	}
	if err := svc.Append(context.Background(), Event{Type: "routing_override"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestService_AppendWithoutRepoFails(t *testing.T) {
	if err := NewService(nil).Append(context.Background(), Event{Type: EventSignIn}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_LogSessionFillsIDTimeAndIP(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }

	ctx := WithClientIP(context.Background(), "1.2.3.4")
	sess := auth.Session{ID: "s1", UserID: "u1", Email: "a@b.c"}
	if err := svc.LogSession(ctx, EventSessionRevoked, sess, "backend_invalid"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" || !e.CreatedAt.Equal(fixed) {
		t.Fatalf("expected id and timestamp assigned, got %+v", e)
	}
	if e.IPAddress != "1.2.3.4" || e.Reason != "backend_invalid" || e.SessionID != "s1" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestDenialRecorder(t *testing.T) {
	repo := NewMemoryRepo()
	DenialRecorder{Audit: NewService(repo)}.RecordDenied(context.Background(), auth.Session{ID: "s", UserID: "u"}, "/admin")

	got := repo.ByType(EventAccessDenied)
	if len(got) != 1 || got[0].Path != "/admin" || got[0].UserID != "u" {
		t.Fatalf("unexpected denials %+v", got)
	}

	// A recorder without a service is inert.
	DenialRecorder{}.RecordDenied(context.Background(), auth.Session{ID: "s"}, "/admin")
}

type failingRepo struct{}

func (failingRepo) Append(context.Context, Event) error { return errors.New("disk full") }

func TestDenialRecorder_LogsAppendFailure(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.With(context.Background(), logger.NewWithWriter(&buf, "local"))

	DenialRecorder{Audit: NewService(failingRepo{})}.RecordDenied(ctx, auth.Session{ID: "s"}, "/admin")

	out := buf.String()
	if !strings.Contains(out, "audit append failed") || !strings.Contains(out, "disk full") {
		t.Fatalf("expected a warning with the cause, got %q", out)
	}
}
