// Package idempotency remembers which order an Idempotency-Key created so a
// retried POST /orders returns the first order instead of creating another.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// KeyOrderCreate maps an Idempotency-Key header to the created order.
const KeyOrderCreate = "idem:order:create:%s"

// DefaultTTL is how long a key is remembered when none is configured.
const DefaultTTL = 24 * time.Hour

// Entry is what a key remembers: the order it created and the fingerprint of
// the request that created it.
type Entry struct {
	OrderID     int    `json:"order_id"`
	Fingerprint string `json:"fingerprint"`
}

// Store records entries by idempotency key.
type Store interface {
	// Lookup returns the entry for key, if any.
	Lookup(ctx context.Context, key string) (entry Entry, ok bool, err error)
	// Remember records entry for key until the TTL runs out.
	Remember(ctx context.Context, key string, entry Entry) error
}

// Fingerprint hashes the JSON form of payload. Two requests with the same
// payload get the same fingerprint.
func Fingerprint(payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.WithStack(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func orderCreateKey(key string) string {
	return fmt.Sprintf(KeyOrderCreate, key)
}

type memoryEntry struct {
	Entry
	expiresAt time.Time
}

// Memory is a process-local Store used when Redis isn't configured.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]memoryEntry{},
	}
}

func (m *Memory) Lookup(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := orderCreateKey(key)
	e, ok := m.entries[k]
	if !ok {
		return Entry{}, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, k)
		return Entry{}, false, nil
	}
	return e.Entry, true, nil
}

func (m *Memory) Remember(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[orderCreateKey(key)] = memoryEntry{Entry: entry, expiresAt: now.Add(m.ttl)}
	return nil
}
