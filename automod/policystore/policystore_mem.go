package policystore

import (
	"context"
	"sync"
)

type MemStore struct {
	mu       sync.RWMutex
	automod  map[string]*AutomodConfig
	policies map[string]map[Rule]*Policy
	raid     map[string]*RaidPolicy
}

func NewMemStore() *MemStore {
	return &MemStore{
		automod:  make(map[string]*AutomodConfig),
		policies: make(map[string]map[Rule]*Policy),
		raid:     make(map[string]*RaidPolicy),
	}
}

func (s *MemStore) Automod(ctx context.Context, communityID string) (*AutomodConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.automod[communityID], nil
}

func (s *MemStore) RulePolicy(ctx context.Context, communityID string, rule Rule) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules, ok := s.policies[communityID]
	if !ok {
		return nil, nil
	}
	return rules[rule], nil
}

func (s *MemStore) RaidMode(ctx context.Context, communityID string) (*RaidPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raid[communityID], nil
}

func (s *MemStore) SetAutomod(communityID string, cfg *AutomodConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == nil {
		delete(s.automod, communityID)
		return
	}
	s.automod[communityID] = cfg
}

func (s *MemStore) SetRulePolicy(communityID string, rule Rule, p *Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, ok := s.policies[communityID]
	if !ok {
		rules = make(map[Rule]*Policy)
		s.policies[communityID] = rules
	}
	if p == nil {
		delete(rules, rule)
		return
	}
	rules[rule] = p
}

func (s *MemStore) SetRaidMode(communityID string, p *RaidPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		delete(s.raid, communityID)
		return
	}
	s.raid[communityID] = p
}
