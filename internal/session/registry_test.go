package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/halvorsen/skald/internal/apperr"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(0, 0, nil, nil)
	s := r.Create(context.Background())
	if s.ID() == "" {
		t.Fatal("empty workspace id")
	}

	got, err := r.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d", r.Count())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(0, 0, nil, nil)
	_, err := r.Get("no-such-workspace")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry(0, 0, nil, nil)
	s := r.Create(context.Background())

	if err := r.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(s.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v after delete", err)
	}
	if err := r.Delete(s.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSweepDropsIdleWorkspaces(t *testing.T) {
	r := NewRegistry(0, time.Minute, nil, nil)
	old := r.Create(context.Background())
	fresh := r.Create(context.Background())
	fresh.NewDocument(context.Background(), "a.md", "")

	// Backdate the idle one past the TTL and sweep at a fixed instant.
	old.mu.Lock()
	old.lastUsed = time.Now().Add(-2 * time.Minute)
	old.mu.Unlock()

	r.sweepOnce(time.Now())

	if _, err := r.Get(old.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("idle workspace survived sweep: %v", err)
	}
	if _, err := r.Get(fresh.ID()); err != nil {
		t.Errorf("active workspace swept: %v", err)
	}
}
