// Package cache holds the read-through cache for client training logs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"coachdesk/internal/domain/clienttemplate"
)

// DefaultTTL bounds staleness if an invalidation is lost.
const DefaultTTL = 10 * time.Minute

// Entry is the result of a lookup. Generation is passed back to Set when the caller fills a miss.
type Entry struct {
	Sessions   []clienttemplate.Session
	Generation int64
	Hit        bool
}

// TrainingLog caches the fully sorted list of a client's completed sessions.
// Invalidate starts a new generation; a Set carrying an older generation is never read back,
// so a load that overlapped a write cannot repopulate the cache with pre-write data.
type TrainingLog interface {
	Get(ctx context.Context, clientID string) (Entry, error)
	Set(ctx context.Context, clientID string, generation int64, sessions []clienttemplate.Session) error
	Invalidate(ctx context.Context, clientID string) error
}

// Key returns the redis key of one generation of a client's training log.
func Key(clientID string, generation int64) string {
	return fmt.Sprintf("coachdesk:training-log:%s:%d", clientID, generation)
}

// GenerationKey returns the redis counter bumped on every invalidation.
func GenerationKey(clientID string) string {
	return "coachdesk:training-log-gen:" + clientID
}

// client is the part of *redis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Redis stores training logs as JSON strings with a TTL.
type Redis struct {
	rdb client
	ttl time.Duration
}

// NewRedis returns a cache over rdb. A non-positive ttl uses DefaultTTL.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return newRedis(rdb, ttl)
}

func newRedis(rdb client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// Get implements TrainingLog.
// POST: a missing key is a miss carrying the current generation; an undecodable value is
// dropped and reported as a miss
func (c *Redis) Get(ctx context.Context, clientID string) (Entry, error) {
	gen, err := c.rdb.Get(ctx, GenerationKey(clientID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("redis get training log generation: %w", err)
	}
	key := Key(clientID, gen)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{Generation: gen}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get training log: %w", err)
	}
	var sessions []clienttemplate.Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		slog.Warn("cache_event", "event", "corrupt_entry_dropped", "client_id", clientID, "error", err)
		c.rdb.Del(ctx, key)
		return Entry{Generation: gen}, nil
	}
	return Entry{Sessions: sessions, Generation: gen, Hit: true}, nil
}

// Set implements TrainingLog.
func (c *Redis) Set(ctx context.Context, clientID string, generation int64, sessions []clienttemplate.Session) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode training log: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(clientID, generation), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set training log: %w", err)
	}
	return nil
}

// Invalidate implements TrainingLog. Entries of older generations are left to expire.
func (c *Redis) Invalidate(ctx context.Context, clientID string) error {
	if err := c.rdb.Incr(ctx, GenerationKey(clientID)).Err(); err != nil {
		return fmt.Errorf("redis bump training log generation: %w", err)
	}
	return nil
}

// Noop never holds anything.
type Noop struct{}

// Get implements TrainingLog.
func (Noop) Get(context.Context, string) (Entry, error) { return Entry{}, nil }

// Set implements TrainingLog.
func (Noop) Set(context.Context, string, int64, []clienttemplate.Session) error { return nil }

// Invalidate implements TrainingLog.
func (Noop) Invalidate(context.Context, string) error { return nil }
