package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return key
}

func TestNewManager_RejectsBadKey(t *testing.T) {
	if _, err := NewManager(NewMemoryStore(), []byte("short"), 0); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	m, err := NewManager(NewMemoryStore(), testKey(t), 0)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.TTL != DefaultTTL {
		t.Fatalf("TTL default = %v, got %v", DefaultTTL, m.TTL)
	}
}

func TestManager_CreateValidateResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, err := NewManager(store, testKey(t), time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Create(ctx, "secret-api-key")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}

	if !m.Validate(ctx, token) {
		t.Fatalf("fresh session should validate")
	}
	got, err := m.ResolveAPIKey(ctx, token)
	if err != nil {
		t.Fatalf("ResolveAPIKey: %v", err)
	}
	if got != "secret-api-key" {
		t.Fatalf("resolved %q, want original key", got)
	}

	// Stored record must not contain the key in the clear.
	rec, err := store.Get(ctx, token)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if rec.APIKey == "secret-api-key" || bytes.Contains([]byte(rec.APIKey), []byte("secret-api-key")) {
		t.Fatalf("credential stored in the clear: %q", rec.APIKey)
	}
}

func TestManager_CreateRejectsEmptyKey(t *testing.T) {
	m, _ := NewManager(NewMemoryStore(), testKey(t), time.Hour)
	if _, err := m.Create(context.Background(), ""); !errors.Is(err, ErrEmptyAPIKey) {
		t.Fatalf("expected ErrEmptyAPIKey, got %v", err)
	}
}

func TestManager_ExpiredSessionFailsClosed(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(NewMemoryStore(), testKey(t), time.Hour)
	// Sessions born expired.
	m.TTL = -time.Second

	token, err := m.Create(ctx, "k")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Validate(ctx, token) {
		t.Fatalf("expired session validated")
	}
	if _, err := m.ResolveAPIKey(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestManager_UnknownTokenFailsClosed(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(NewMemoryStore(), testKey(t), time.Hour)

	if m.Validate(ctx, "nope") {
		t.Fatalf("unknown token validated")
	}
	if m.Validate(ctx, "") {
		t.Fatalf("empty token validated")
	}
	if _, err := m.ResolveAPIKey(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(NewMemoryStore(), testKey(t), time.Hour)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, err := m.Create(ctx, "k")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d creates", i)
		}
		seen[token] = struct{}{}
	}
}

func TestSealer_RoundTripAndKeyMismatch(t *testing.T) {
	s1, err := newSealer(testKey(t))
	if err != nil {
		t.Fatalf("newSealer: %v", err)
	}
	sealed, err := s1.seal("api-key")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := s1.open(sealed)
	if err != nil || got != "api-key" {
		t.Fatalf("open round-trip: %q, %v", got, err)
	}

	// A different key must not open the record.
	s2, _ := newSealer(testKey(t))
	if _, err := s2.open(sealed); !errors.Is(err, ErrSealedKey) {
		t.Fatalf("expected ErrSealedKey with wrong key, got %v", err)
	}

	// Garbage input.
	if _, err := s1.open("!!not-base64!!"); !errors.Is(err, ErrSealedKey) {
		t.Fatalf("expected ErrSealedKey for garbage, got %v", err)
	}
	if _, err := s1.open("c2hvcnQ"); !errors.Is(err, ErrSealedKey) {
		t.Fatalf("expected ErrSealedKey for short input, got %v", err)
	}
}

func TestSealer_NoncesDiffer(t *testing.T) {
	s, _ := newSealer(testKey(t))
	a, _ := s.seal("same")
	b, _ := s.seal("same")
	if a == b {
		t.Fatalf("two seals of the same plaintext produced identical output")
	}
}
