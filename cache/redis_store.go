package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vaultfm/config"
	"vaultfm/logger"
)

// blockKeyPrefix namespaces cached block bytes from any other keyspace
// use of the same Redis instance.
const blockKeyPrefix = "vaultfm:block:"

// RedisStore mirrors the LRU's resident bytes into Redis so the cache
// tier is shared across engine processes, the way the teacher's segment
// cache shares encoded HLS segments across requests. It never drives
// eviction decisions itself — the in-memory LRU remains authoritative
// for the bounds and pin invariants §4.3 requires.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis using the engine's configuration.
func NewRedisStore(cfg *config.Config, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get returns the cached bytes for blockID, or (nil, false) on a
// clean miss. Redis errors are logged and treated as a miss so callers
// fall back to the object store rather than failing the read.
func (s *RedisStore) Get(ctx context.Context, blockID string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, blockKeyPrefix+blockID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Debug("redis cache miss", logger.String("block_id", blockID))
			return nil, false
		}
		logger.Warn("redis cache get failed",
			logger.String("block_id", blockID),
			logger.ErrorField(err))
		return nil, false
	}
	return data, true
}

// Put mirrors blockID's bytes into Redis with the store's configured TTL.
func (s *RedisStore) Put(ctx context.Context, blockID string, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, blockKeyPrefix+blockID, data, s.ttl).Err(); err != nil {
		logger.Warn("redis cache put failed",
			logger.String("block_id", blockID),
			logger.Int("data_size", len(data)),
			logger.ErrorField(err))
	}
}

// Delete removes blockID from the mirror, e.g. when a release is deleted.
func (s *RedisStore) Delete(ctx context.Context, blockID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Del(ctx, blockKeyPrefix+blockID).Err()
}
