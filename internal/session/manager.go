// Package session – Manager.
//
// The Manager is the only component that mints tokens and resolves them back
// to credentials. Validation fails closed: an absent, unknown, or expired
// token is indistinguishable from "no session" to callers.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is the session lifetime applied when a Manager is constructed
// without an explicit TTL.
const DefaultTTL = 24 * time.Hour

// tokenBytes is the entropy of a session token before encoding.
const tokenBytes = 32

// ErrEmptyAPIKey is returned by Create when no credential was supplied.
var ErrEmptyAPIKey = errors.New("api key is required")

// Manager creates, validates, and resolves sessions against a Store.
// It is safe for concurrent use.
type Manager struct {
	// Store is the backing session store.
	Store Store
	// TTL is the fixed session lifetime applied at creation.
	TTL time.Duration

	sealer *sealer
	now    func() time.Time
}

// NewManager constructs a Manager sealing credentials with key (KeySize
// bytes). A ttl <= 0 falls back to DefaultTTL.
func NewManager(store Store, key []byte, ttl time.Duration) (*Manager, error) {
	sl, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		Store:  store,
		TTL:    ttl,
		sealer: sl,
		now:    time.Now,
	}, nil
}

// Create seals apiKey and stores it under a fresh cryptographically random
// token with expiry now + TTL. It returns the token the caller must present
// on subsequent requests.
func (m *Manager) Create(ctx context.Context, apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrEmptyAPIKey
	}

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	sealed, err := m.sealer.seal(apiKey)
	if err != nil {
		return "", fmt.Errorf("seal credential: %w", err)
	}

	rec := Record{
		APIKey:    sealed,
		ExpiresAt: m.now().Add(m.TTL),
	}
	if err := m.Store.Put(ctx, token, rec, m.TTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Validate reports whether token refers to a live session. It fails closed
// on empty tokens, store misses, store errors, and elapsed expiry, and never
// mutates state.
func (m *Manager) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	rec, err := m.Store.Get(ctx, token)
	if err != nil {
		return false
	}
	return rec.ExpiresAt.After(m.now())
}

// ResolveAPIKey returns the caller's credential for a live session, or
// ErrNotFound when the session is absent or expired.
func (m *Manager) ResolveAPIKey(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}
	rec, err := m.Store.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if !rec.ExpiresAt.After(m.now()) {
		return "", ErrNotFound
	}
	return m.sealer.open(rec.APIKey)
}

// newToken returns a base64url-encoded random token.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
