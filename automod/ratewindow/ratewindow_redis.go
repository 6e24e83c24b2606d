package ratewindow

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisWindowPrefix string = "window/"

// Redis-backed window store, for running multiple engine instances against
// shared rate state. The key TTL plays the role of the window: the first
// occurrence opens the window by setting the expiry, and redis expiring the
// key is the "stale window" reset.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) Record(ctx context.Context, w Window, key string, t time.Time) (bool, error) {
	k := redisWindowPrefix + bucketKey(w, key)
	count, err := s.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// first occurrence opens the window
		if err := s.Client.Expire(ctx, k, w.Period).Err(); err != nil {
			return false, err
		}
	}
	if count > int64(w.Limit) {
		if err := s.Client.Del(ctx, k).Err(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *RedisStore) Reset(ctx context.Context, w Window, key string) error {
	return s.Client.Del(ctx, redisWindowPrefix+bucketKey(w, key)).Err()
}
