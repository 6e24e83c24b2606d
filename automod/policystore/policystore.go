// Read-side store for per-community moderation policy. Writes happen through
// the (separate) configuration command surface; the engine only ever reads.
//
// Absence is meaningful throughout: a missing AutomodConfig disables the whole
// engine for the community, a missing rule Policy disables that one rule, and
// a missing RaidPolicy means raid mode is inactive.
package policystore

import (
	"context"
	"time"
)

type Rule string

const (
	RuleSpam        Rule = "spam"
	RuleMassCaps    Rule = "masscaps"
	RuleLinks       Rule = "links"
	RuleInvites     Rule = "invites"
	RuleMassMention Rule = "massmention"
	RuleRaid        Rule = "raid"
)

// Ordinal enforcement strength, configured per rule.
type Severity int

const (
	SeverityMute Severity = iota + 1
	SeverityTempMute
	SeverityKick
	SeverityBan
	SeverityTempBan
)

func (s Severity) String() string {
	switch s {
	case SeverityMute:
		return "mute"
	case SeverityTempMute:
		return "temp-mute"
	case SeverityKick:
		return "kick"
	case SeverityBan:
		return "ban"
	case SeverityTempBan:
		return "temp-ban"
	}
	return "unknown"
}

const (
	DefaultCapsPercentage = 75
	DefaultMentionLimit   = 5
)

type Policy struct {
	Severity Severity `json:"severity"`
	// Punishment duration for the temporary severities; ignored otherwise
	Duration time.Duration `json:"duration,omitempty"`
	// Rule-specific threshold: caps percentage, mention limit
	Threshold int `json:"threshold,omitempty"`
}

// Caps percentage with the configured bounds applied (25-99, default 75).
func (p *Policy) CapsPercentage() int {
	if p.Threshold < 25 || p.Threshold > 99 {
		return DefaultCapsPercentage
	}
	return p.Threshold
}

// Mention limit with the configured bounds applied (2-15, default 5).
func (p *Policy) MentionLimit() int {
	if p.Threshold < 2 || p.Threshold > 15 {
		return DefaultMentionLimit
	}
	return p.Threshold
}

type AutomodConfig struct {
	LogChannelID string `json:"log_channel_id"`
	MuteRoleID   string `json:"mute_role_id,omitempty"`
	// skip members holding the moderator (manage-messages) permission
	IgnoreModerators bool `json:"ignore_moderators"`
	DeleteMessages   bool `json:"delete_messages"`
}

type RaidAction int

const (
	// age-sensitive variants: only accounts younger than 30 days are actioned
	RaidKickNew RaidAction = iota + 1
	RaidBanNew
	// strict variants: every join is actioned while raid mode is active
	RaidKickAll
	RaidBanAll
)

// Whether the action only applies to young accounts.
func (a RaidAction) AgeSensitive() bool {
	return a == RaidKickNew || a == RaidBanNew
}

type RaidPolicy struct {
	Action    RaidAction `json:"action"`
	ChannelID string     `json:"channel_id,omitempty"`
	// DM actioned members on a best-effort basis
	NotifyDM bool `json:"notify_dm"`
}

type Store interface {
	// Automod returns the community's global moderation config, or nil when
	// the moderation module is disabled for the community.
	Automod(ctx context.Context, communityID string) (*AutomodConfig, error)
	// RulePolicy returns the policy for one rule, or nil when disabled.
	RulePolicy(ctx context.Context, communityID string, rule Rule) (*Policy, error)
	// RaidMode returns the raid policy, or nil when raid mode is inactive.
	RaidMode(ctx context.Context, communityID string) (*RaidPolicy, error)
}
