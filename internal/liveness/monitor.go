package liveness

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ReasonBackendInvalid is recorded when the backend stops honoring a token.
const ReasonBackendInvalid = "backend_invalid"

// Pinger probes the backend with a specific bearer token.
type Pinger interface {
	PingWithToken(ctx context.Context, token string) (int, error)
}

// Revoker ends a session. Repeated calls for one session must be harmless.
type Revoker interface {
	ForceSignOut(ctx context.Context, sessionID, reason string) error
}

type Outcome int

const (
	// OutcomeAlive covers every status other than 401 and 403, including 5xx.
	OutcomeAlive Outcome = iota
	OutcomeRevoked
	// OutcomeUnreachable means the probe never got an answer; the session is kept.
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRevoked:
		return "revoked"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return "alive"
	}
}

type SweepResult struct {
	Checked int
	Revoked int
	Failed  int
}

// Monitor periodically confirms that the backend still accepts each live
// session's token and revokes the ones it rejects.
type Monitor struct {
	Registry    auth.Registry
	Pinger      Pinger
	Revoker     Revoker
	Interval    time.Duration
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

func (m *Monitor) interval() time.Duration {
	if m.Interval <= 0 {
		return 60 * time.Second
	}
	return m.Interval
}

func (m *Monitor) log() *slog.Logger { return logger.Or(m.Logger) }

// Run sweeps every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval())
	defer t.Stop()

	m.log().Info("liveness monitor started", "interval", m.interval().String())
	for {
		select {
		case <-ctx.Done():
			m.log().Info("liveness monitor stopped")
			return
		case <-t.C:
			start := m.now()
			res, err := m.Sweep(ctx)
			if err != nil {
				m.log().Warn("liveness sweep failed", "err", err)
				continue
			}
			m.log().Debug("liveness sweep",
				"checked", res.Checked,
				"revoked", res.Revoked,
				"failed", res.Failed,
				"elapsed_ms", m.now().Sub(start).Milliseconds(),
			)
		}
	}
}

// Sweep probes every live session once. Probe failures are counted, not
// returned; only a registry failure aborts the sweep.
func (m *Monitor) Sweep(ctx context.Context) (SweepResult, error) {
	sessions, err := m.Registry.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var checked, revoked, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if m.Concurrency > 0 {
		g.SetLimit(m.Concurrency)
	}
	for _, s := range sessions {
		if s.AccessToken == "" {
			continue
		}
		checked.Add(1)
		s := s
		g.Go(func() error {
			out, err := m.Check(gctx, s)
			switch {
			case err != nil:
				failed.Add(1)
			case out == OutcomeRevoked:
				revoked.Add(1)
			case out == OutcomeUnreachable:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return SweepResult{
		Checked: int(checked.Load()),
		Revoked: int(revoked.Load()),
		Failed:  int(failed.Load()),
	}, ctx.Err()
}

// Check probes one session and revokes it when the backend answers 401 or 403.
func (m *Monitor) Check(ctx context.Context, s auth.Session) (Outcome, error) {
	status, err := m.Pinger.PingWithToken(ctx, s.AccessToken)
	if err != nil {
		m.log().Warn("liveness probe failed", "session_id", s.ID, "err", err)
		return OutcomeUnreachable, nil
	}
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return OutcomeAlive, nil
	}

	if err := m.Revoker.ForceSignOut(ctx, s.ID, ReasonBackendInvalid); err != nil {
		m.log().Error("liveness revoke failed", "session_id", s.ID, "err", err)
		return OutcomeRevoked, err
	}
	m.log().Info("session rejected by backend", "session_id", s.ID, "status", status)
	return OutcomeRevoked, nil
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
