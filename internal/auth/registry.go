package auth

import (
	"context"
	"sync"
	"time"
)

// Registry is the server-side record of live sessions.
//
// The signed cookie proves who the caller is; the registry answers whether
// that session is still allowed. Revocation markers outlive the session
// record so a stale cookie cannot be replayed or refreshed.
type Registry interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	// Get returns ErrSessionNotFound for unknown, expired, or revoked sessions.
	Get(ctx context.Context, id string) (Session, error)
	Revoke(ctx context.Context, id, reason string) error
	// Revoked reports the revocation reason for id, if any.
	Revoked(ctx context.Context, id string) (string, bool, error)
	// List returns every live, unrevoked session.
	List(ctx context.Context) ([]Session, error)
}

// MemoryRegistry is an in-process Registry for tests and single-replica dev runs.
type MemoryRegistry struct {
	mu         sync.Mutex
	sessions   map[string]memoryEntry
	revoked    map[string]memoryRevocation
	revokedTTL time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

type memoryRevocation struct {
	reason    string
	expiresAt time.Time
}

func NewMemoryRegistry(revokedTTL time.Duration) *MemoryRegistry {
	if revokedTTL <= 0 {
		revokedTTL = 30 * 24 * time.Hour
	}
	return &MemoryRegistry{
		sessions:   make(map[string]memoryEntry),
		revoked:    make(map[string]memoryRevocation),
		revokedTTL: revokedTTL,
		now:        time.Now,
	}
}

func (r *MemoryRegistry) Put(ctx context.Context, s Session, ttl time.Duration) error {
	if s.ID == "" {
		return ErrSessionInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = memoryEntry{session: s, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if rv, ok := r.revoked[id]; ok && now.Before(rv.expiresAt) {
		return Session{}, ErrSessionNotFound
	}
	e, ok := r.sessions[id]
	if !ok || !now.Before(e.expiresAt) {
		delete(r.sessions, id)
		return Session{}, ErrSessionNotFound
	}
	return e.session, nil
}

func (r *MemoryRegistry) Revoke(ctx context.Context, id, reason string) error {
	if id == "" {
		return ErrSessionInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	r.revoked[id] = memoryRevocation{reason: reason, expiresAt: r.now().Add(r.revokedTTL)}
	return nil
}

func (r *MemoryRegistry) Revoked(ctx context.Context, id string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.revoked[id]
	if !ok {
		return "", false, nil
	}
	if !r.now().Before(rv.expiresAt) {
		delete(r.revoked, id)
		return "", false, nil
	}
	return rv.reason, true, nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	out := make([]Session, 0, len(r.sessions))
	for id, e := range r.sessions {
		if !now.Before(e.expiresAt) {
			delete(r.sessions, id)
			continue
		}
		out = append(out, e.session)
	}
	return out, nil
}
