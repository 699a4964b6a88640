package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halvorsen/skald/internal/apperr"
	"github.com/halvorsen/skald/internal/index"
	"github.com/halvorsen/skald/internal/sse"
)

// Registry tracks the live workspaces. Everything is memory-resident:
// a deleted or swept workspace is gone, which is the intended lifecycle.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	historyLimit int
	idleTTL      time.Duration
	idx          index.DocumentIndex
	broker       *sse.Broker
}

// NewRegistry creates a registry. idx and broker may be nil; idleTTL <= 0
// disables sweeping.
func NewRegistry(historyLimit int, idleTTL time.Duration, idx index.DocumentIndex, broker *sse.Broker) *Registry {
	return &Registry{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
		idleTTL:      idleTTL,
		idx:          idx,
		broker:       broker,
	}
}

// Create starts a new empty workspace and returns its session.
func (r *Registry) Create(_ context.Context) *Session {
	id := uuid.NewString()
	s := New(id, r.historyLimit, r.idx, r.broker)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for a workspace id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: workspace %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// Delete removes a workspace and drops its index rows.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session: workspace %s: %w", id, apperr.ErrNotFound)
	}
	if r.idx != nil {
		return r.idx.DeleteWorkspace(id)
	}
	return nil
}

// Count returns the number of live workspaces.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep runs until ctx is done, dropping workspaces idle past the TTL.
func (r *Registry) Sweep(ctx context.Context) {
	if r.idleTTL <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(time.Now())
		}
	}
}

func (r *Registry) sweepOnce(now time.Time) {
	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if now.Sub(s.LastUsed()) > r.idleTTL {
			expired = append(expired, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		if r.idx != nil {
			_ = r.idx.DeleteWorkspace(id)
		}
	}
}
