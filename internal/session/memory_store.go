package session

import (
	"context"
	"sync"
	"time"
)

// Store is the keyed session store consumed by the orchestrator. All
// mutation during one message happens through the orchestrator, which
// serializes access per session id; implementations only need to be
// safe for concurrent use across distinct ids.
type Store interface {
	// Load returns the state for id, or nil when the session is unknown.
	Load(ctx context.Context, id string) (*State, error)
	// Save persists the state and refreshes its TTL.
	Save(ctx context.Context, state *State) error
	// Delete removes a session; deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error
	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)
	// Sweep evicts sessions inactive past the TTL and returns how many
	// were removed.
	Sweep(ctx context.Context) (int, error)
}

const stripes = 32

// MemoryStore keeps sessions in a lock-striped map with idle-TTL
// eviction. It is the default store for single-process deployments.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	shards [stripes]memoryShard
}

type memoryShard struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

// memoryEntry pairs a state with the store's own copy of its activity
// timestamp. Expiry decisions read savedAt under the shard lock only,
// never fields of a State the owning caller may still be mutating.
type memoryEntry struct {
	state   *State
	savedAt time.Time
}

// NewMemoryStore creates a store evicting sessions idle longer than ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]memoryEntry)
	}
	return s
}

// WithClock overrides the time source, for deterministic tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) shard(id string) *memoryShard {
	return &s.shards[fnv32(id)%stripes]
}

func fnv32(s string) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Load returns the stored state, or nil when absent or expired.
func (s *MemoryStore) Load(ctx context.Context, id string) (*State, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	entry, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.now().Sub(entry.savedAt) > s.ttl {
		// Expired but not yet swept.
		_ = s.Delete(ctx, id)
		return nil, nil
	}
	return entry.state, nil
}

// Save stores the state. The state's UpdatedAt is snapshotted here, so
// the caller's later mutations never race with expiry checks.
func (s *MemoryStore) Save(_ context.Context, state *State) error {
	sh := s.shard(state.ID)
	sh.mu.Lock()
	sh.sessions[state.ID] = memoryEntry{state: state, savedAt: state.UpdatedAt}
	sh.mu.Unlock()
	return nil
}

// Delete removes a session. Eviction and explicit reset share this
// idempotent path.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	sh := s.shard(id)
	sh.mu.Lock()
	delete(sh.sessions, id)
	sh.mu.Unlock()
	return nil
}

// Count returns the number of live sessions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total, nil
}

// Sweep removes sessions idle past the TTL and reports how many were
// evicted. Safe to run concurrently with live message processing.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, entry := range sh.sessions {
			if entry.savedAt.Before(cutoff) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// RunSweeper sweeps on a fixed period until ctx is done, reporting
// evictions to onEvict (which may be nil).
func RunSweeper(ctx context.Context, store Store, period time.Duration, onEvict func(int)) {
	if period <= 0 {
		period = 5 * time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := store.Sweep(ctx); err == nil && removed > 0 && onEvict != nil {
				onEvict(removed)
			}
		}
	}
}
