package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/ferry-watch/internal/domain"
)

const (
	LastResultKey    = "ferry:last_result"
	LastAvailableKey = "ferry:last_available"
	ResultsChannel   = "ferry:results"
)

// RedisStore keeps the latest verdict under a key and announces each one.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisStore{client: rdb, ttl: ttl}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Record stores the result JSON with a TTL and publishes it. Available
// results are also kept without expiry.
func (s *RedisStore) Record(ctx context.Context, result *domain.CheckResult) error {
	payload, err := json.Marshal(NewRecord(result))
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, LastResultKey, payload, s.ttl)
		if result.Available {
			pipe.Set(ctx, LastAvailableKey, payload, 0)
		}
		pipe.Publish(ctx, ResultsChannel, payload)
		return nil
	})
	return err
}
