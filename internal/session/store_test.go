package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := Record{APIKey: "sealed", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.Put(ctx, "tok", rec, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.APIKey != "sealed" {
		t.Fatalf("got %+v", got)
	}

	if err := s.Delete(ctx, "tok"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting an absent token is not an error.
	if err := s.Delete(ctx, "tok"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}

func TestMemoryStore_GetDropsExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Put(ctx, "tok", Record{APIKey: "x", ExpiresAt: now.Add(time.Minute)}, time.Minute)

	// Still live.
	if _, err := s.Get(ctx, "tok"); err != nil {
		t.Fatalf("live Get: %v", err)
	}

	// Advance past expiry; Get must miss and drop the record.
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	s.mu.Lock()
	_, still := s.records["tok"]
	s.mu.Unlock()
	if still {
		t.Fatalf("expired record not dropped")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Put(ctx, "live", Record{ExpiresAt: now.Add(time.Hour)}, time.Hour)
	_ = s.Put(ctx, "dead1", Record{ExpiresAt: now.Add(-time.Second)}, 0)
	_ = s.Put(ctx, "dead2", Record{ExpiresAt: now}, 0)

	if dropped := s.Sweep(); dropped != 2 {
		t.Fatalf("Sweep dropped %d, want 2", dropped)
	}
	if _, err := s.Get(ctx, "live"); err != nil {
		t.Fatalf("live record swept: %v", err)
	}
}
