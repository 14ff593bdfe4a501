package cache

import (
	"context"
	"errors"
	"time"
)

// SessionRef is the cached outcome of a checkout session creation. Replays
// of the same idempotency key get the ref back instead of a second session.
type SessionRef struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type SessionCache interface {
	Get(ctx context.Context, key string) (SessionRef, error)
	Set(ctx context.Context, key string, ref SessionRef, ttl time.Duration) error
}

var ErrCacheMiss = errors.New("cache miss")
