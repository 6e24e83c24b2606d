package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-bot/warden/automod/platform"
	"github.com/warden-bot/warden/automod/policystore"
)

func simpleMessage(authorID, content string) MessageEvent {
	return MessageEvent{
		CommunityID: "c1",
		ChannelID:   "general",
		MessageID:   "m1",
		AuthorID:    authorID,
		Content:     content,
		CreatedAt:   time.Now(),
	}
}

// installs a detector that flags every message with the given policy and
// records whether it ran
func flagAllRule(ran *bool, policy *policystore.Policy) MessageRuleFunc {
	return func(c *MessageContext) error {
		*ran = true
		c.RequestDelete()
		c.Violate(policystore.RuleSpam, "test violation", policy)
		return nil
	}
}

func TestEngineEligibilityShortCircuits(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	fix.SimpleMember("alice", "alice")

	// module disabled for unknown community
	evt := simpleMessage("alice", "hello")
	evt.CommunityID = "c2"
	assert.NoError(fix.Engine.ProcessMessage(ctx, evt))
	assert.False(ran)

	// bot authors are never evaluated
	evt = simpleMessage("alice", "hello")
	evt.AuthorIsBot = true
	assert.NoError(fix.Engine.ProcessMessage(ctx, evt))
	assert.False(ran)

	// author no longer a member
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("ghost", "hello")))
	assert.False(ran)

	// administrators are exempt
	fix.Client.AddMember("c1", &platform.Member{ID: "admin", Handle: "admin"}, platform.Permissions{Administrator: true})
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("admin", "hello")))
	assert.False(ran)

	// moderators are exempt only when configured
	fix.Client.AddMember("c1", &platform.Member{ID: "mod", Handle: "mod"}, platform.Permissions{ManageMessages: true, SendMessages: true})
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("mod", "hello")))
	assert.True(ran)

	ran = false
	fix.Policies.SetAutomod("c1", &policystore.AutomodConfig{LogChannelID: "log", IgnoreModerators: true, DeleteMessages: true})
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("mod", "hello")))
	assert.False(ran)
}

func TestEngineMissingBotPermissions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	fix.SimpleMember("alice", "alice")

	// without the full enforcement set, the pipeline never runs
	fix.Client.Perms["c1/bot"] = platform.Permissions{ManageRoles: true, KickMembers: true}
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "hello")))
	assert.False(ran)
}

func TestEngineWhitelistBeforeRules(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	member := fix.SimpleMember("alice", "alice")

	fix.Sets.Add(ChannelWhitelistSet+"c1", "general")
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "hello")))
	assert.False(ran)

	// role whitelist, non-whitelisted channel
	fix.Sets.Remove(ChannelWhitelistSet+"c1", "general")
	member.RoleIDs = []string{"trusted"}
	fix.Sets.Add(RoleWhitelistSet+"c1", "trusted")
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "hello")))
	assert.False(ran)

	fix.Sets.Remove(RoleWhitelistSet+"c1", "trusted")
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "hello")))
	assert.True(ran)
}

func TestEngineDeleteRespectsConfig(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	fix.SimpleMember("alice", "alice")

	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Equal([]string{"c1/general/m1"}, fix.Client.Recorded("deleted"))

	// same violation with deletion disabled
	fix.Policies.SetAutomod("c1", &policystore.AutomodConfig{LogChannelID: "log", DeleteMessages: false})
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Len(fix.Client.Recorded("deleted"), 1)
}

func TestEngineKickAndHierarchyFallback(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	fix.SimpleMember("alice", "alice")

	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Equal([]string{"c1/alice"}, fix.Client.Recorded("kicked"))
	assert.Len(fix.Client.Embeds, 1)
	assert.Contains(fix.Client.Embeds[0].Title, "Kicked")

	// a target above the bot in hierarchy gets the overwrite fallback instead
	fix.Client.AddMember("c1", &platform.Member{ID: "boss", Handle: "boss", TopRolePosition: 100}, platform.Permissions{SendMessages: true})
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("boss", "spam")))
	assert.Len(fix.Client.Recorded("kicked"), 1)
	assert.Equal([]string{"c1/general/boss"}, fix.Client.Recorded("overwrites"))
}

func TestEngineMutePaths(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityMute})}
	fix.SimpleMember("alice", "alice")

	// no mute role configured, member can still speak: overwrite fallback
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Equal([]string{"c1/general/alice"}, fix.Client.Recorded("overwrites"))

	// no mute role, member already silenced in the channel: skipped, no log entry
	fix.Client.ChanPerms["c1/general/alice"] = platform.Permissions{}
	embedsBefore := len(fix.Client.Embeds)
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Len(fix.Client.Embeds, embedsBefore)

	// configured mute role below the bot: role assignment
	fix.Client.Roles["c1/muted"] = &platform.Role{ID: "muted", Name: "Muted", Position: 10}
	fix.Policies.SetAutomod("c1", &policystore.AutomodConfig{LogChannelID: "log", MuteRoleID: "muted", DeleteMessages: true})
	fix.SimpleMember("bob", "bob")
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("bob", "spam")))
	require.Len(fix.Client.Recorded("roles_added"), 1)
	assert.Equal("c1/bob/muted", fix.Client.Recorded("roles_added")[0])
}

func TestEngineTempMuteSchedulesUnmute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{
		Severity: policystore.SeverityTempMute,
		Duration: 20 * time.Millisecond,
	})}
	fix.Client.Roles["c1/muted"] = &platform.Role{ID: "muted", Name: "Muted", Position: 10}
	fix.Policies.SetAutomod("c1", &policystore.AutomodConfig{LogChannelID: "log", MuteRoleID: "muted", DeleteMessages: true})
	fix.SimpleMember("alice", "alice")

	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Equal([]string{"c1/alice/muted"}, fix.Client.Recorded("roles_added"))
	assert.Eventually(func() bool {
		return len(fix.Client.Recorded("roles_removed")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEngineEditEmbedPreviewSkipped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	fix.SimpleMember("alice", "alice")

	evt := simpleMessage("alice", "https://chat.example.com/invite/abc")
	evt.EmbedsBefore = 0
	evt.EmbedsAfter = 1
	assert.NoError(fix.Engine.ProcessMessageEdit(ctx, evt))
	assert.False(ran)

	evt.EmbedsBefore = 1
	assert.NoError(fix.Engine.ProcessMessageEdit(ctx, evt))
	assert.True(ran)
}

func simpleJoin(memberID, eventID string, accountAge time.Duration) JoinEvent {
	return JoinEvent{
		CommunityID:      "c1",
		EventID:          eventID,
		MemberID:         memberID,
		Handle:           memberID,
		AccountCreatedAt: time.Now().Add(-accountAge),
		JoinedAt:         time.Now(),
	}
}

func joinKickRule(c *JoinContext) error {
	c.ViolateJoin(ActionRaidKick, "raid mode engaged")
	return nil
}

func TestEngineRaidJoinFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	fix.Engine.Rules.JoinRules = []JoinRuleFunc{joinKickRule}
	fix.Policies.SetRaidMode("c1", &policystore.RaidPolicy{Action: policystore.RaidKickNew, NotifyDM: true})

	// established accounts are exempt from the age-sensitive actions
	assert.NoError(fix.Engine.ProcessMemberJoin(ctx, simpleJoin("old", "batch1", 90*24*time.Hour)))
	assert.Empty(fix.Client.Recorded("kicked"))

	// first four new-account joins in a batch are kicked, the fifth is banned
	for i := 0; i < 4; i++ {
		evt := simpleJoin("new", "batch1", time.Hour)
		evt.MemberID = evt.MemberID + string(rune('a'+i))
		assert.NoError(fix.Engine.ProcessMemberJoin(ctx, evt))
	}
	assert.Len(fix.Client.Recorded("kicked"), 4)
	assert.Empty(fix.Client.Recorded("banned"))

	assert.NoError(fix.Engine.ProcessMemberJoin(ctx, simpleJoin("newe", "batch1", time.Hour)))
	assert.Len(fix.Client.Recorded("kicked"), 4)
	assert.Len(fix.Client.Recorded("banned"), 1)

	// separate batch starts its own count
	assert.NoError(fix.Engine.ProcessMemberJoin(ctx, simpleJoin("newf", "batch2", time.Hour)))
	assert.Len(fix.Client.Recorded("kicked"), 5)

	// actioned members got the courtesy DM
	assert.NotEmpty(fix.Client.Recorded("dms"))
}

func TestEngineRaidModeInactive(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	fix.Engine.Rules.JoinRules = []JoinRuleFunc{joinKickRule}

	assert.NoError(fix.Engine.ProcessMemberJoin(ctx, simpleJoin("new", "batch1", time.Hour)))
	assert.Empty(fix.Client.Recorded("kicked"))
}

func TestEnginePlatformFailureIsContained(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityKick})}
	fix.SimpleMember("alice", "alice")
	fix.Client.FailKick = true

	// a failed kick never propagates out of event processing
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Empty(fix.Client.Recorded("kicked"))

	// the channel got the generic apology notice
	msgs := fix.Client.Recorded("messages")
	require.Len(msgs, 1)
	assert.Contains(msgs[0], noticeExecutionFailed)

	// the moderation log entry carries the failure note
	require.Len(fix.Client.Embeds, 1)
	assert.Contains(fix.Client.Embeds[0].Description, "punishment execution failed")

	// same containment for a failed ban
	fix.Client.FailKick = false
	fix.Client.FailBan = true
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityBan})}
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Empty(fix.Client.Recorded("banned"))
	assert.Len(fix.Client.Recorded("messages"), 2)
}

func TestEngineMuteFailureIsContained(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var ran bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{flagAllRule(&ran, &policystore.Policy{Severity: policystore.SeverityMute})}
	fix.Client.Roles["c1/muted"] = &platform.Role{ID: "muted", Name: "Muted", Position: 10}
	fix.Policies.SetAutomod("c1", &policystore.AutomodConfig{LogChannelID: "log", MuteRoleID: "muted", DeleteMessages: true})
	fix.SimpleMember("alice", "alice")
	fix.Client.FailAddRole = true

	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Empty(fix.Client.Recorded("roles_added"))
	assert.Contains(fix.Client.Recorded("messages"), "c1/general: "+noticeExecutionFailed)

	// when even the overwrite fallback fails, processing still returns clean
	fix.Client.FailAddRole = false
	fix.Client.FailOverwrite = true
	fix.Policies.SetAutomod("c1", &policystore.AutomodConfig{LogChannelID: "log", DeleteMessages: true})
	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.Empty(fix.Client.Recorded("overwrites"))
}

func TestEngineFirstViolationWins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := NewEngineTestFixture()
	var first, second bool
	fix.Engine.Rules.MessageRules = []MessageRuleFunc{
		func(c *MessageContext) error {
			first = true
			c.Violate(policystore.RuleLinks, "link", &policystore.Policy{Severity: policystore.SeverityMute})
			return nil
		},
		func(c *MessageContext) error {
			second = true
			return nil
		},
	}
	fix.SimpleMember("alice", "alice")

	assert.NoError(fix.Engine.ProcessMessage(ctx, simpleMessage("alice", "spam")))
	assert.True(first)
	assert.False(second)
}
