package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/reshetovitsme/livewatch/internal/shared/cache"
	"github.com/samber/oops"
)

const favouritesKey = "livewatch:favourites"

// RedisStorage keeps the favourite set in a Redis set.
type RedisStorage struct {
	redis *cache.Redis
	key   string
}

func NewRedisStorage(r *cache.Redis) *RedisStorage {
	return &RedisStorage{redis: r, key: favouritesKey}
}

func (s *RedisStorage) Load(ctx context.Context) ([]string, error) {
	ids, err := s.redis.Client().SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, oops.In("favourites").With("key", s.key, "context", "failed to read favourites").Wrap(err)
	}
	return normalize(ids), nil
}

// Save replaces the whole set in one transaction.
func (s *RedisStorage) Save(ctx context.Context, channelIDs []string) error {
	ids := normalize(channelIDs)
	_, err := s.redis.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(ids) > 0 {
			members := make([]any, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			pipe.SAdd(ctx, s.key, members...)
		}
		return nil
	})
	if err != nil {
		return oops.In("favourites").With("key", s.key, "count", len(ids), "context", "failed to write favourites").Wrap(err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner.
func (s *RedisStorage) Close() error {
	return nil
}
