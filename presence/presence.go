// Package presence tracks which users currently hold a live socket.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// A Tracker records user heartbeats. A user counts as online until its last
// heartbeat is older than the tracker's TTL or it is marked offline.
type Tracker interface {
	Online(ctx context.Context, userID uuid.UUID, at time.Time) error
	Offline(ctx context.Context, userID uuid.UUID) error
	// Filter returns the subset of ids that are online.
	Filter(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	List(ctx context.Context) ([]uuid.UUID, error)
}

// Memory is a process-local Tracker.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[uuid.UUID]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[uuid.UUID]time.Time),
	}
}

func (m *Memory) Online(_ context.Context, userID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[userID] = at
	return nil
}

func (m *Memory) Offline(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, userID)
	return nil
}

func (m *Memory) Filter(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if at, ok := m.seen[id]; ok && at.After(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *Memory) List(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	out := make([]uuid.UUID, 0, len(m.seen))
	for id, at := range m.seen {
		if !at.After(cutoff) {
			delete(m.seen, id)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
