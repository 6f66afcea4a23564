package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const claimKeyPrefix = "token:claimed:"

// Redeemer serializes redemption of a single-use token across concurrent
// requests. The store update that nulls the token column is not guarded by
// optimistic locking, so without this claim two requests racing on the same
// confirmation or reset link could both see the token as pending. The first
// request to claim a value wins; the loser is treated as presenting an
// already-consumed token.
type Redeemer struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedeemer builds a Redis-backed redemption guard. The TTL only has to
// outlive the window in which a stale link might be retried.
func NewRedeemer(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redeemer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redeemer{client: client, ttl: ttl, logger: logger}
}

// Claim attempts to take ownership of a token value. It returns false only
// when another request has already claimed the same value. When Redis is
// unreachable the guard degrades to unguarded redemption rather than
// blocking the flow.
func (r *Redeemer) Claim(ctx context.Context, token string) bool {
	if r == nil || r.client == nil {
		return true
	}

	ok, err := r.client.SetNX(ctx, claimKeyPrefix+token, 1, r.ttl).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("token claim degraded, redis unavailable", zap.Error(err))
		}
		return true
	}
	return ok
}

// Release frees a claim so the token can be retried, used when the request
// that claimed it failed before consuming the token.
func (r *Redeemer) Release(ctx context.Context, token string) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.Del(ctx, claimKeyPrefix+token).Err(); err != nil && r.logger != nil {
		r.logger.Warn("token claim release failed", zap.Error(err))
	}
}
