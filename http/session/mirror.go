package session

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// A Mirror reflects session lifecycle events into an external store so a
// fleet of servers, or an operator, can observe which session IDs are live.
//
// The in-memory Registry remains the source of truth for resume decisions;
// a Mirror is write-through bookkeeping and its failures are logged, never
// fatal to a request.
type Mirror interface {
	Put(ctx context.Context, id string, expiry time.Duration) error
	Refresh(ctx context.Context, id string, expiry time.Duration) error
	Drop(ctx context.Context, id string) error
}

var _ Mirror = RedisMirror{}

// A RedisMirror implements Mirror over a redis keyspace, relying on key
// TTLs to shadow expiry so crashed servers leave no permanent residue.
type RedisMirror struct {
	c      redis.UniversalClient
	prefix string
}

// NewRedisMirror constructs a RedisMirror prefixing its keys with prefix.
func NewRedisMirror(c redis.UniversalClient, prefix string) RedisMirror {
	if prefix == "" {
		prefix = "relay:session:"
	}
	return RedisMirror{c: c, prefix: prefix}
}

func (m RedisMirror) Put(ctx context.Context, id string, expiry time.Duration) error {
	return m.c.Set(ctx, m.prefix+id, "1", expiry).Err()
}

func (m RedisMirror) Refresh(ctx context.Context, id string, expiry time.Duration) error {
	return m.c.Expire(ctx, m.prefix+id, expiry).Err()
}

func (m RedisMirror) Drop(ctx context.Context, id string) error {
	return m.c.Del(ctx, m.prefix+id).Err()
}
