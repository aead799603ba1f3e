package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists sessions in Redis with a native TTL, for
// deployments where the assistant runs on more than one instance.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore wraps a Redis client as a session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if tracer == nil {
		tracer = otel.Tracer("clinic-assistant.internal.session")
	}
	return &RedisStore{client: client, ttl: ttl, tracer: tracer}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Load fetches and decodes the state, or nil when the key is absent.
func (s *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()

	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load %s: %w", id, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode %s: %w", id, err)
	}
	if state.FieldAttempts == nil {
		state.FieldAttempts = make(map[string]int)
	}
	if state.Collected == nil {
		state.Collected = make(map[string]bool)
	}
	if state.UsedPrompts == nil {
		state.UsedPrompts = make(map[string]bool)
	}
	return &state, nil
}

// Save encodes the state and refreshes the TTL.
func (s *RedisStore) Save(ctx context.Context, state *State) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal %s: %w", state.ID, err)
	}
	if err := s.client.Set(ctx, sessionKey(state.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist %s: %w", state.ID, err)
	}
	return nil
}

// Delete removes a session key.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete %s: %w", id, err)
	}
	return nil
}

// Count scans for live session keys.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKey("*"), 250).Result()
		if err != nil {
			return 0, fmt.Errorf("session: scan failed: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// Sweep is a no-op for Redis: expiry is delegated to the per-key TTL
// set on Save.
func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
