package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warden-bot/warden/automod/errorreport"
	"github.com/warden-bot/warden/automod/platform"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/raidflood"
	"github.com/warden-bot/warden/automod/ratewindow"
	"github.com/warden-bot/warden/automod/scheduler"
	"github.com/warden-bot/warden/automod/setstore"
)

// whitelist set name prefixes (suffixed with the community ID)
const (
	ChannelWhitelistSet = "whitelist/channels/"
	RoleWhitelistSet    = "whitelist/roles/"
)

// Runtime for executing detectors against inbound events and enforcing the
// resulting punishments.
//
// TODO: careful when initializing: several fields should not be null or zero, even though they are pointer type.
type Engine struct {
	Logger     *slog.Logger
	Rules      RuleSet
	Policies   policystore.Store
	Windows    ratewindow.Store
	Whitelists setstore.SetStore
	Raids      *raidflood.Tracker
	Platform   platform.Client
	Scheduler  scheduler.Scheduler
	Reporter   errorreport.Reporter
}

// ProcessMessage evaluates a message-create event. Expected short-circuits
// (module disabled, exempt author, missing bot permissions) return nil.
func (eng *Engine) ProcessMessage(ctx context.Context, evt MessageEvent) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "community", evt.CommunityID, "message", evt.MessageID)
			eventErrorCount.WithLabelValues("message").Inc()
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	return eng.processMessage(ctx, evt)
}

// ProcessMessageEdit evaluates a message-edit event. Edits which merely
// attached an embed preview are platform-generated and skipped outright.
func (eng *Engine) ProcessMessageEdit(ctx context.Context, evt MessageEvent) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "community", evt.CommunityID, "message", evt.MessageID)
			eventErrorCount.WithLabelValues("message-edit").Inc()
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message-edit").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message-edit").Inc()

	if evt.EmbedsBefore == 0 && evt.EmbedsAfter > 0 {
		return nil
	}
	evt.Edited = true
	return eng.processMessage(ctx, evt)
}

func (eng *Engine) processMessage(ctx context.Context, evt MessageEvent) error {

	cfg, err := eng.Policies.Automod(ctx, evt.CommunityID)
	if err != nil {
		return fmt.Errorf("reading automod config: %w", err)
	}
	if cfg == nil {
		// moderation module disabled for this community
		return nil
	}
	if evt.AuthorIsBot {
		return nil
	}

	// they may have been removed already, with messages still arriving
	member, err := eng.Platform.Member(ctx, evt.CommunityID, evt.AuthorID)
	if err != nil {
		return fmt.Errorf("resolving author: %w", err)
	}
	if member == nil {
		return nil
	}

	authorPerms, err := eng.Platform.Permissions(ctx, evt.CommunityID, evt.AuthorID)
	if err != nil {
		return fmt.Errorf("resolving author permissions: %w", err)
	}
	if authorPerms.Administrator {
		return nil
	}
	if authorPerms.ManageMessages && cfg.IgnoreModerators {
		return nil
	}

	// without the full enforcement permission set, skip the pipeline entirely
	bot, botPerms, err := eng.botState(ctx, evt.CommunityID)
	if err != nil {
		return err
	}
	if !botPerms.ManageRoles || !botPerms.KickMembers || !botPerms.BanMembers {
		return nil
	}

	// whitelist short-circuits happen before any rate-window mutation
	exempt, err := eng.whitelisted(ctx, evt.CommunityID, evt.ChannelID, member)
	if err != nil {
		return err
	}
	if exempt {
		return nil
	}

	c := NewMessageContext(ctx, eng, evt, cfg, member, bot, botPerms)
	eng.Logger.Debug("processing message", "community", evt.CommunityID, "message", evt.MessageID, "edited", evt.Edited)
	if err := eng.Rules.CallMessageRules(&c); err != nil {
		return err
	}
	if c.Err != nil {
		c.Logger.Warn("error during rule execution", "err", c.Err)
	}
	eng.CanonicalLogLineMessage(&c)
	return eng.persistMessageEffects(&c)
}

// ProcessMemberJoin evaluates a member-join event against raid mode.
func (eng *Engine) ProcessMemberJoin(ctx context.Context, evt JoinEvent) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "community", evt.CommunityID, "member", evt.MemberID)
			eventErrorCount.WithLabelValues("join").Inc()
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("join").Inc()

	cfg, err := eng.Policies.Automod(ctx, evt.CommunityID)
	if err != nil {
		return fmt.Errorf("reading automod config: %w", err)
	}
	if cfg == nil {
		return nil
	}
	raid, err := eng.Policies.RaidMode(ctx, evt.CommunityID)
	if err != nil {
		return fmt.Errorf("reading raid policy: %w", err)
	}
	if raid == nil {
		return nil
	}

	bot, botPerms, err := eng.botState(ctx, evt.CommunityID)
	if err != nil {
		return err
	}
	if !botPerms.KickMembers || !botPerms.BanMembers {
		return nil
	}

	// established accounts are exempt from the age-sensitive raid actions
	if raid.Action.AgeSensitive() && !evt.NewAccount() {
		return nil
	}

	c := NewJoinContext(ctx, eng, evt, cfg, raid, bot)
	eng.Logger.Debug("processing join", "community", evt.CommunityID, "member", evt.MemberID)
	if err := eng.Rules.CallJoinRules(&c); err != nil {
		return err
	}
	if c.Err != nil {
		c.Logger.Warn("error during rule execution", "err", c.Err)
	}
	eng.CanonicalLogLineJoin(&c)
	return eng.persistJoinEffects(&c)
}

func (eng *Engine) botState(ctx context.Context, communityID string) (*platform.Member, platform.Permissions, error) {
	bot, err := eng.Platform.BotMember(ctx, communityID)
	if err != nil {
		return nil, platform.Permissions{}, fmt.Errorf("resolving bot member: %w", err)
	}
	perms, err := eng.Platform.Permissions(ctx, communityID, bot.ID)
	if err != nil {
		return nil, platform.Permissions{}, fmt.Errorf("resolving bot permissions: %w", err)
	}
	return bot, perms, nil
}

func (eng *Engine) whitelisted(ctx context.Context, communityID, channelID string, member *platform.Member) (bool, error) {
	if channelID != "" {
		ok, err := eng.Whitelists.InSet(ctx, ChannelWhitelistSet+communityID, channelID)
		if err != nil {
			return false, fmt.Errorf("checking channel whitelist: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	for _, roleID := range member.RoleIDs {
		ok, err := eng.Whitelists.InSet(ctx, RoleWhitelistSet+communityID, roleID)
		if err != nil {
			return false, fmt.Errorf("checking role whitelist: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Applies the accumulated effects of a message rule pass: message deletion
// first, then punishment and the moderation log entry. Deletion failure never
// blocks punishment.
func (eng *Engine) persistMessageEffects(c *MessageContext) error {
	eff := c.effects

	if eff.DeleteMessage && c.Config.DeleteMessages {
		eng.deleteMessage(c)
	}

	if eff.Verdict == nil {
		return nil
	}
	detectorFireCount.WithLabelValues(string(eff.Verdict.Rule)).Inc()

	rec := eng.executePunishment(c.Ctx, c.Logger, punishmentInput{
		CommunityID: c.Event.CommunityID,
		ChannelID:   c.Event.ChannelID,
		Target:      c.Member,
		Bot:         c.bot,
		Verdict:     *eff.Verdict,
		Config:      c.Config,
	})
	if !rec.Skipped {
		eng.emitLogEmbed(c.Ctx, c.Event.CommunityID, c.Config.LogChannelID, rec)
	}
	return nil
}

func (eng *Engine) persistJoinEffects(c *JoinContext) error {
	eff := c.effects
	if eff.Verdict == nil {
		return nil
	}
	detectorFireCount.WithLabelValues(string(eff.Verdict.Rule)).Inc()

	target := &platform.Member{
		ID:        c.Event.MemberID,
		Handle:    c.Event.Handle,
		AvatarURL: c.Event.AvatarURL,
		CreatedAt: c.Event.AccountCreatedAt,
	}
	rec := eng.executePunishment(c.Ctx, c.Logger, punishmentInput{
		CommunityID: c.Event.CommunityID,
		Target:      target,
		Bot:         c.bot,
		Verdict:     *eff.Verdict,
		Config:      c.Config,
		Raid:        c.Raid,
		BatchID:     c.Event.CommunityID + "/" + c.Event.EventID,
	})
	if !rec.Skipped {
		eng.emitLogEmbed(c.Ctx, c.Event.CommunityID, c.Config.LogChannelID, rec)
	}
	return nil
}

func (eng *Engine) deleteMessage(c *MessageContext) {
	perms, err := eng.Platform.ChannelPermissions(c.Ctx, c.Event.CommunityID, c.Event.ChannelID, c.bot.ID)
	if err != nil {
		c.Logger.Warn("resolving bot channel permissions", "err", err)
		return
	}
	if !perms.ManageMessages {
		return
	}
	if err := eng.Platform.DeleteMessage(c.Ctx, c.Event.CommunityID, c.Event.ChannelID, c.Event.MessageID); err != nil {
		c.Logger.Warn("deleting violating message", "err", err)
		messageDeleteCount.WithLabelValues("error").Inc()
		return
	}
	messageDeleteCount.WithLabelValues("deleted").Inc()
}

func (eng *Engine) CanonicalLogLineMessage(c *MessageContext) {
	if c.effects.Verdict == nil && !c.effects.DeleteMessage {
		return
	}
	var rule, action string
	if c.effects.Verdict != nil {
		rule = string(c.effects.Verdict.Rule)
		action = c.effects.Verdict.Action.String()
	}
	c.Logger.Info("automod-message-event",
		"message", c.Event.MessageID,
		"rule", rule,
		"action", action,
		"delete", c.effects.DeleteMessage,
	)
}

func (eng *Engine) CanonicalLogLineJoin(c *JoinContext) {
	if c.effects.Verdict == nil {
		return
	}
	c.Logger.Info("automod-join-event",
		"batch", c.Event.EventID,
		"action", c.effects.Verdict.Action.String(),
	)
}
