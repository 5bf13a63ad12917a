package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCreateKey(t *testing.T) {
	assert.Equal(t, "idem:order:create:abc-123", orderCreateKey("abc-123"))
}

func TestFingerprint(t *testing.T) {
	type payload struct {
		User int `json:"user"`
		Book int `json:"book"`
	}

	a, err := Fingerprint(payload{User: 1, Book: 2})
	require.NoError(t, err)
	assert.Len(t, a, 64)

	same, err := Fingerprint(payload{User: 1, Book: 2})
	require.NoError(t, err)
	assert.Equal(t, a, same)

	other, err := Fingerprint(payload{User: 1, Book: 3})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }

	_, ok, err := m.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Remember(ctx, "k1", Entry{OrderID: 17, Fingerprint: "abc"}))

	entry, ok, err := m.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Entry{OrderID: 17, Fingerprint: "abc"}, entry)

	_, ok, err = m.Lookup(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Hour)
	_, ok, err = m.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "keys expire after the TTL")
}

func TestMemory_RememberPrunesExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Now()
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Remember(ctx, "old", Entry{OrderID: 1}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Remember(ctx, "new", Entry{OrderID: 2}))

	assert.Len(t, m.entries, 1)
}

func TestNewMemory_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewMemory(0).ttl)
}

func TestRedis_Unreachable(t *testing.T) {
	t.Parallel()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedis(rdb, time.Hour)
	defer store.Close()

	_, ok, err := store.Lookup(context.Background(), "k1")
	require.Error(t, err)
	assert.False(t, ok)

	require.Error(t, store.Remember(context.Background(), "k1", Entry{OrderID: 1}))
}
