// Package session manages short-lived API-key sessions: opaque random tokens
// mapped to a caller's credential for the external completion provider.
//
// Sessions are a capability token for a third-party secret, not a user
// identity. Every protected request re-reads the store rather than caching
// the result, trading a store round-trip for correctness under concurrent
// expiry.
//
// Two Store implementations are provided:
//   - redisStore: server-side TTL eviction via Redis SET EX
//   - MemoryStore: in-process map with expiry checks and janitor sweeps,
//     used in tests and single-binary deployments without Redis
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Store.Get when a token is unknown or its record
// has expired. Callers must treat it as "unauthenticated".
var ErrNotFound = errors.New("session not found")

// Record is the value stored per session token. APIKey holds the sealed
// (encrypted) credential; ExpiresAt duplicates the store-side TTL so expiry
// is enforced even on stores without native eviction.
type Record struct {
	APIKey    string    `json:"api_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists session records keyed by opaque token.
type Store interface {
	// Put writes rec under token with the given time-to-live.
	Put(ctx context.Context, token string, rec Record, ttl time.Duration) error
	// Get returns the record for token, or ErrNotFound when the token is
	// unknown or already evicted.
	Get(ctx context.Context, token string) (Record, error)
	// Delete removes the record for token. Deleting an absent token is not
	// an error.
	Delete(ctx context.Context, token string) error
}

// keyPrefix namespaces session keys inside a shared Redis database.
const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store backed by the given Redis client. Expiry is
// delegated to Redis key TTLs.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+token, b, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, token string) (Record, error) {
	b, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}

// MemoryStore is a process-local Store guarded by a mutex. Expired records
// are dropped lazily on Get and in bulk by Sweep; StartJanitor runs Sweep on
// a timer so idle tokens do not accumulate for the process lifetime.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Put implements Store. The ttl parameter is ignored; expiry is enforced via
// rec.ExpiresAt.
func (s *MemoryStore) Put(_ context.Context, token string, rec Record, _ time.Duration) error {
	s.mu.Lock()
	s.records[token] = rec
	s.mu.Unlock()
	return nil
}

// Get implements Store, dropping the record when it has expired.
func (s *MemoryStore) Get(_ context.Context, token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !rec.ExpiresAt.After(s.now()) {
		delete(s.records, token)
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.records, token)
	s.mu.Unlock()
	return nil
}

// Sweep removes all expired records and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for token, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, token)
			dropped++
		}
	}
	return dropped
}

// StartJanitor sweeps expired records every interval until ctx is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
