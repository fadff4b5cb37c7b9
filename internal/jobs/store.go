package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is the minimal key-value contract for task metadata. Every
// implementation is best-effort from the caller's point of view: a task id
// is written once at submission and read and deleted once on terminal
// status, so concurrent access on distinct keys needs no coordination.
type Store interface {
	Put(ctx context.Context, taskID string, rec Record) error
	Get(ctx context.Context, taskID string) (Record, bool, error)
	Delete(ctx context.Context, taskID string) error
}

// recordTTL bounds how long an orphaned record can linger when the
// delete-on-completion pass fails or never runs.
const recordTTL = 24 * time.Hour

// RedisStore persists records in redis under job:<taskID> keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("jobs: redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: recordTTL}, nil
}

func (s *RedisStore) Put(ctx context.Context, taskID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(taskID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, taskID string) (Record, bool, error) {
	data, err := s.client.Get(ctx, jobKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	return s.client.Del(ctx, jobKey(taskID)).Err()
}

// Close releases the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func jobKey(taskID string) string {
	return "job:" + taskID
}

// Disabled is the store used when no backend is configured. Lookups report
// absent so callers fall back to the default kind; writes succeed silently.
type Disabled struct{}

func (Disabled) Put(context.Context, string, Record) error { return nil }

func (Disabled) Get(context.Context, string) (Record, bool, error) {
	return Record{}, false, nil
}

func (Disabled) Delete(context.Context, string) error { return nil }

var (
	_ Store = (*RedisStore)(nil)
	_ Store = Disabled{}
)
