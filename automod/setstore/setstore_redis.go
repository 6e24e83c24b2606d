package setstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var redisSetPrefix string = "set/"

type RedisSetStore struct {
	Client *redis.Client
}

func NewRedisSetStore(redisURL string) (*RedisSetStore, error) {
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
	return &RedisSetStore{Client: rdb}, nil
}

func (s *RedisSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	return s.Client.SIsMember(ctx, redisSetPrefix+name, val).Result()
}

func (s *RedisSetStore) Add(ctx context.Context, name string, vals ...string) error {
	members := make([]interface{}, len(vals))
	for i, v := range vals {
		members[i] = v
	}
	return s.Client.SAdd(ctx, redisSetPrefix+name, members...).Err()
}

func (s *RedisSetStore) Remove(ctx context.Context, name string, vals ...string) error {
	members := make([]interface{}, len(vals))
	for i, v := range vals {
		members[i] = v
	}
	return s.Client.SRem(ctx, redisSetPrefix+name, members...).Err()
}
