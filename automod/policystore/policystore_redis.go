package policystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	redisAutomodPrefix string = "policy/automod/"
	redisRulePrefix    string = "policy/rule/"
	redisRaidPrefix    string = "policy/raid/"
)

// Redis-backed policy store. Values are JSON blobs written by the
// configuration command surface; a missing key means disabled.
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

func (s *RedisStore) Automod(ctx context.Context, communityID string) (*AutomodConfig, error) {
	var out AutomodConfig
	ok, err := s.getJSON(ctx, redisAutomodPrefix+communityID, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *RedisStore) RulePolicy(ctx context.Context, communityID string, rule Rule) (*Policy, error) {
	var out Policy
	ok, err := s.getJSON(ctx, redisRulePrefix+communityID+"/"+string(rule), &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *RedisStore) RaidMode(ctx context.Context, communityID string) (*RaidPolicy, error) {
	var out RaidPolicy
	ok, err := s.getJSON(ctx, redisRaidPrefix+communityID, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("parsing policy value at %s: %w", key, err)
	}
	return true, nil
}
