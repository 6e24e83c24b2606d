package policystore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore keeps a short-TTL read cache in front of another store, so hot
// communities don't hit the backend on every event. Absent configs are cached
// too (as nils): a community with moderation disabled is the common case.
type CachedStore struct {
	Inner Store

	automod *expirable.LRU[string, *AutomodConfig]
	rules   *expirable.LRU[string, *Policy]
	raid    *expirable.LRU[string, *RaidPolicy]
}

func NewCachedStore(inner Store, capacity int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Inner:   inner,
		automod: expirable.NewLRU[string, *AutomodConfig](capacity, nil, ttl),
		rules:   expirable.NewLRU[string, *Policy](capacity, nil, ttl),
		raid:    expirable.NewLRU[string, *RaidPolicy](capacity, nil, ttl),
	}
}

func (s *CachedStore) Automod(ctx context.Context, communityID string) (*AutomodConfig, error) {
	if v, ok := s.automod.Get(communityID); ok {
		return v, nil
	}
	v, err := s.Inner.Automod(ctx, communityID)
	if err != nil {
		return nil, err
	}
	s.automod.Add(communityID, v)
	return v, nil
}

func (s *CachedStore) RulePolicy(ctx context.Context, communityID string, rule Rule) (*Policy, error) {
	key := communityID + "/" + string(rule)
	if v, ok := s.rules.Get(key); ok {
		return v, nil
	}
	v, err := s.Inner.RulePolicy(ctx, communityID, rule)
	if err != nil {
		return nil, err
	}
	s.rules.Add(key, v)
	return v, nil
}

func (s *CachedStore) RaidMode(ctx context.Context, communityID string) (*RaidPolicy, error) {
	if v, ok := s.raid.Get(communityID); ok {
		return v, nil
	}
	v, err := s.Inner.RaidMode(ctx, communityID)
	if err != nil {
		return nil, err
	}
	s.raid.Add(communityID, v)
	return v, nil
}

// Purge drops cached entries for one community, eg after a config update.
func (s *CachedStore) Purge(communityID string) {
	s.automod.Remove(communityID)
	s.raid.Remove(communityID)
	for _, rule := range []Rule{RuleSpam, RuleMassCaps, RuleLinks, RuleInvites, RuleMassMention, RuleRaid} {
		s.rules.Remove(communityID + "/" + string(rule))
	}
}
