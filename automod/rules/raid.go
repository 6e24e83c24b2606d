package rules

import (
	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/policystore"
)

var _ engine.JoinRuleFunc = RaidJoinRule

// RaidJoinRule actions joins while raid mode is active. The engine has
// already applied the account-age exemption for the age-sensitive actions,
// so every join reaching this rule is actionable.
func RaidJoinRule(c *engine.JoinContext) error {
	switch c.Raid.Action {
	case policystore.RaidBanNew, policystore.RaidBanAll:
		c.ViolateJoin(engine.ActionRaidBan, "Anti-raid mode is active")
	case policystore.RaidKickNew, policystore.RaidKickAll:
		c.ViolateJoin(engine.ActionRaidKick, "Anti-raid mode is active")
	}
	return nil
}
