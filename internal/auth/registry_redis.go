package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisActiveSet     = "sessions:active"
	redisSessionPrefix = "session:"
)

// RedisRegistry stores sessions as JSON under session:<id>, indexes them in
// the sessions:active set, and marks revocations under session:<id>:revoked.
// Index entries whose record expired are pruned lazily by List.
type RedisRegistry struct {
	rdb        redis.Cmdable
	revokedTTL time.Duration
}

func NewRedisRegistry(rdb redis.Cmdable, revokedTTL time.Duration) *RedisRegistry {
	if revokedTTL <= 0 {
		revokedTTL = 30 * 24 * time.Hour
	}
	return &RedisRegistry{rdb: rdb, revokedTTL: revokedTTL}
}

func sessionKey(id string) string { return redisSessionPrefix + id }
func revokedKey(id string) string { return redisSessionPrefix + id + ":revoked" }

func (r *RedisRegistry) Put(ctx context.Context, s Session, ttl time.Duration) error {
	if s.ID == "" {
		return ErrSessionInvalid
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(s.ID), raw, ttl)
		p.SAdd(ctx, redisActiveSet, s.ID)
		return nil
	})
	return err
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (Session, error) {
	if _, revoked, err := r.Revoked(ctx, id); err != nil {
		return Session{}, err
	} else if revoked {
		return Session{}, ErrSessionNotFound
	}

	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func (r *RedisRegistry) Revoke(ctx context.Context, id, reason string) error {
	if id == "" {
		return ErrSessionInvalid
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, revokedKey(id), reason, r.revokedTTL)
		p.Del(ctx, sessionKey(id))
		p.SRem(ctx, redisActiveSet, id)
		return nil
	})
	return err
}

func (r *RedisRegistry) Revoked(ctx context.Context, id string) (string, bool, error) {
	reason, err := r.rdb.Get(ctx, revokedKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return reason, true, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Session, error) {
	ids, err := r.rdb.SMembers(ctx, redisActiveSet).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Session, 0, len(ids))
	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s Session
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		_ = r.rdb.SRem(ctx, redisActiveSet, stale...).Err()
	}
	return out, nil
}
