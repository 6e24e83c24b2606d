package rules

import (
	"github.com/warden-bot/warden/automod/engine"
)

// DefaultRules returns the full production rule set. Message rules run in
// fixed priority order; the first to produce a verdict wins.
func DefaultRules() engine.RuleSet {
	return engine.RuleSet{
		MessageRules: []engine.MessageRuleFunc{
			LinksRule,
			InvitesRule,
			MassCapsRule,
			SpamRule,
			MassMentionRule,
		},
		JoinRules: []engine.JoinRuleFunc{
			RaidJoinRule,
		},
	}
}
