package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRegistry_RevokeHidesSession(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(time.Hour)

	if err := reg.Put(ctx, Session{ID: "a", AccessToken: "tok"}, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := reg.Get(ctx, "a"); err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := reg.Revoke(ctx, "a", "backend_invalid"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := reg.Get(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	reason, revoked, err := reg.Revoked(ctx, "a")
	if err != nil || !revoked || reason != "backend_invalid" {
		t.Fatalf("unexpected revocation state: %q %v %v", reason, revoked, err)
	}
	list, _ := reg.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected revoked session to leave the live list")
	}
}

func TestMemoryRegistry_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(time.Hour)
	now := time.Unix(1700000000, 0)
	reg.now = func() time.Time { return now }

	_ = reg.Put(ctx, Session{ID: "a"}, time.Minute)
	_ = reg.Put(ctx, Session{ID: "b"}, time.Hour)

	now = now.Add(2 * time.Minute)
	list, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "b" {
		t.Fatalf("expected only b to survive, got %+v", list)
	}
}

func TestMemoryRegistry_RejectsEmptyID(t *testing.T) {
	reg := NewMemoryRegistry(0)
	if err := reg.Put(context.Background(), Session{}, time.Minute); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}
