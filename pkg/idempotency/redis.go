package idempotency

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
)

// Redis keeps keys in Redis so every API instance sees them.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient connects to addr with short timeouts; a slow Redis should
// fail the lookup rather than hold the request.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// NewRedis returns a Store backed by rdb.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// Entries are stored as JSON.
func (r *Redis) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	data, err := r.rdb.Get(ctx, orderCreateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.WithStack(err)
	}

	entry := Entry{}
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, errors.Wrapf(err, "malformed idempotency entry for %q", key)
	}
	return entry, true, nil
}

func (r *Redis) Remember(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.WithStack(err)
	}
	err = r.rdb.Set(ctx, orderCreateKey(key), data, r.ttl).Err()
	return errors.WithStack(err)
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return errors.WithStack(r.rdb.Close())
}
