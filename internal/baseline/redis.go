package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces baseline keys.
const DefaultRedisPrefix = "crankbench:baseline:"

// RedisStore keeps baselines as JSON values in Redis, shared between
// machines running the same benchmarks.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store using client. An empty prefix selects
// DefaultRedisPrefix; a zero ttl keeps records forever.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Load(ctx context.Context, name string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("redis get %s: %w", s.key(name), err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode baseline %q: %w", name, err)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if rec.Name == "" {
		return errors.New("baseline name is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode baseline %q: %w", rec.Name, err)
	}
	if err := s.client.Set(ctx, s.key(rec.Name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(rec.Name), err)
	}
	return nil
}
