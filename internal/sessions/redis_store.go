package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	sessionKeyPrefix = "calendar_session:"

	// DefaultTTL is the sliding lifetime of a stored snapshot.
	DefaultTTL = 12 * time.Hour
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("sessions: session not found")

// SnapshotStore persists session snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps snapshots as JSON strings with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRedisStore returns nil when redisClient is nil.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  redisClient,
		tracer: otel.Tracer("clinic.internal.sessions"),
		ttl:    ttl,
	}
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if snap.ID == "" {
		return errors.New("sessions: snapshot id required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sessions: marshal snapshot: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "sessions.save")
	defer span.End()

	if err := s.redis.Set(ctx, sessionKey(snap.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: save snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot and extends its TTL.
func (s *RedisStore) Load(ctx context.Context, id string) (Snapshot, error) {
	if s == nil || s.redis == nil {
		return Snapshot{}, ErrNotFound
	}

	ctx, span := s.tracer.Start(ctx, "sessions.load")
	defer span.End()

	key := sessionKey(id)
	raw, err := s.redis.GetEx(ctx, key, s.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		span.RecordError(err)
		return Snapshot{}, fmt.Errorf("sessions: load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		span.RecordError(err)
		return Snapshot{}, fmt.Errorf("sessions: decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "sessions.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: delete snapshot: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
