package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warden-bot/warden/automod/platform"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/scheduler"
)

// One-shot enforcement action. The raid actions skip hierarchy checks (new
// members hold no roles) and consult the join-flood tracker for escalation.
type Action int

const (
	ActionMute Action = iota + 1
	ActionTempMute
	ActionKick
	ActionBan
	ActionTempBan
	ActionRaidKick
	ActionRaidBan
)

func (a Action) String() string {
	switch a {
	case ActionMute:
		return "mute"
	case ActionTempMute:
		return "temp-mute"
	case ActionKick:
		return "kick"
	case ActionBan:
		return "ban"
	case ActionTempBan:
		return "temp-ban"
	case ActionRaidKick:
		return "raid-kick"
	case ActionRaidBan:
		return "raid-ban"
	}
	return "unknown"
}

// ActionForSeverity maps a configured severity level onto the action the
// punishment engine executes. Policy severity is never escalated here.
func ActionForSeverity(s policystore.Severity) Action {
	switch s {
	case policystore.SeverityMute:
		return ActionMute
	case policystore.SeverityTempMute:
		return ActionTempMute
	case policystore.SeverityKick:
		return ActionKick
	case policystore.SeverityBan:
		return ActionBan
	case policystore.SeverityTempBan:
		return ActionTempBan
	}
	return ActionMute
}

// Outcome of a single punishment decision. Built once per decision, used for
// the moderation log embed, then discarded.
type EnforcementRecord struct {
	// requested action, and the action actually executed (raid escalation,
	// mechanism fallback)
	Action    Action
	Effective Action
	Target    *platform.Member
	Reason    string
	// zero for permanent actions
	Duration time.Duration

	Succeeded    bool
	FallbackUsed bool
	Failed       bool
	// nothing needed to be done (eg mute requested, member already silenced);
	// no log entry is emitted
	Skipped bool
}

type punishmentInput struct {
	CommunityID string
	// channel the violation happened in; empty for join events
	ChannelID string
	Target    *platform.Member
	Bot       *platform.Member
	Verdict   Verdict
	Config    *policystore.AutomodConfig
	// raid-only fields
	Raid    *policystore.RaidPolicy
	BatchID string
}

const (
	noticeMuteRoleMissing = "Mute role was not found, please create or configure one. Manually removed the member's permission to send messages in this channel instead."
	noticeHierarchy       = "Failed to remove the member, are they higher in role hierarchy than me? Removed their permission to send messages in this channel instead."
	noticeExecutionFailed = "Something failed while punishing the member; the error has been reported. This is most likely due to missing permissions or role hierarchy."
)

// executePunishment runs the enforcement state machine for one verdict. It
// never returns an error: every platform failure is reported to the error
// sink, surfaced as a channel notice where possible, and recorded on the
// returned EnforcementRecord.
func (eng *Engine) executePunishment(ctx context.Context, logger *slog.Logger, in punishmentInput) *EnforcementRecord {
	rec := &EnforcementRecord{
		Action:    in.Verdict.Action,
		Effective: in.Verdict.Action,
		Target:    in.Target,
		Reason:    in.Verdict.Reason,
		Duration:  in.Verdict.Duration,
	}

	switch in.Verdict.Action {
	case ActionMute, ActionTempMute:
		eng.executeMute(ctx, logger, in, rec)
	case ActionKick:
		eng.executeKick(ctx, logger, in, rec)
	case ActionBan, ActionTempBan:
		eng.executeBan(ctx, logger, in, rec)
	case ActionRaidKick, ActionRaidBan:
		eng.executeRaidAction(ctx, logger, in, rec)
	default:
		logger.Error("unknown punishment action", "action", in.Verdict.Action)
		rec.Failed = true
	}

	outcome := "succeeded"
	switch {
	case rec.Failed:
		outcome = "failed"
	case rec.Skipped:
		outcome = "skipped"
	case rec.FallbackUsed:
		outcome = "fallback"
	}
	punishmentExecCount.WithLabelValues(rec.Effective.String(), outcome).Inc()
	return rec
}

func (eng *Engine) executeMute(ctx context.Context, logger *slog.Logger, in punishmentInput, rec *EnforcementRecord) {
	auditReason := auditReason(in.Verdict.Reason)

	var muteRole *platform.Role
	if in.Config.MuteRoleID != "" {
		role, err := eng.Platform.Role(ctx, in.CommunityID, in.Config.MuteRoleID)
		if err != nil {
			eng.reportFailure(ctx, logger, "punishment execution (mute role lookup)", err, in, rec)
			return
		}
		muteRole = role
	}

	if muteRole != nil && !memberHasRole(in.Target, muteRole.ID) && muteRole.Position < in.Bot.TopRolePosition {
		if err := eng.Platform.AddRole(ctx, in.CommunityID, in.Target.ID, muteRole.ID, auditReason); err != nil {
			eng.reportFailure(ctx, logger, "punishment execution (mute)", err, in, rec)
			return
		}
		if in.Verdict.Action == ActionTempMute && in.Verdict.Duration > 0 {
			// partial failure here only weakens the temporary guarantee
			if err := eng.Scheduler.Schedule(ctx, scheduler.Task{
				Kind:        scheduler.KindUnmute,
				CommunityID: in.CommunityID,
				UserID:      in.Target.ID,
				RoleID:      muteRole.ID,
				Duration:    in.Verdict.Duration,
				Reason:      "temporary mute elapsed",
			}); err != nil {
				logger.Error("scheduling auto-unmute", "err", err)
			}
		} else {
			rec.Duration = 0
		}
		eng.channelNotice(ctx, in, fmt.Sprintf("Muted **%s** for %s.", in.Target.Handle, in.Verdict.Reason))
		rec.Succeeded = true
		return
	}

	if muteRole == nil {
		// nothing to do when the member already can't speak here
		perms, err := eng.Platform.ChannelPermissions(ctx, in.CommunityID, in.ChannelID, in.Target.ID)
		if err != nil {
			eng.reportFailure(ctx, logger, "punishment execution (mute)", err, in, rec)
			return
		}
		if !perms.SendMessages {
			rec.Skipped = true
			return
		}
		eng.denySendFallback(ctx, logger, in, rec, noticeMuteRoleMissing)
		return
	}

	// mute role exists but is already applied, or hierarchy forbids assignment
	eng.denySendFallback(ctx, logger, in, rec, noticeHierarchy)
}

func (eng *Engine) executeKick(ctx context.Context, logger *slog.Logger, in punishmentInput, rec *EnforcementRecord) {
	if in.Target.TopRolePosition >= in.Bot.TopRolePosition {
		// hierarchy forbids removal; substitute the mechanism, not the severity
		eng.denySendFallback(ctx, logger, in, rec, noticeHierarchy)
		return
	}
	if err := eng.Platform.Kick(ctx, in.CommunityID, in.Target.ID, auditReason(in.Verdict.Reason)); err != nil {
		eng.reportFailure(ctx, logger, "punishment execution (kick)", err, in, rec)
		return
	}
	eng.channelNotice(ctx, in, fmt.Sprintf("Kicked **%s** for %s.", in.Target.Handle, in.Verdict.Reason))
	rec.Succeeded = true
}

func (eng *Engine) executeBan(ctx context.Context, logger *slog.Logger, in punishmentInput, rec *EnforcementRecord) {
	if in.Target.TopRolePosition >= in.Bot.TopRolePosition {
		eng.denySendFallback(ctx, logger, in, rec, noticeHierarchy)
		return
	}
	if err := eng.Platform.Ban(ctx, in.CommunityID, in.Target.ID, auditReason(in.Verdict.Reason)); err != nil {
		eng.reportFailure(ctx, logger, "punishment execution (ban)", err, in, rec)
		return
	}
	if in.Verdict.Action == ActionTempBan && in.Verdict.Duration > 0 {
		if err := eng.Scheduler.Schedule(ctx, scheduler.Task{
			Kind:        scheduler.KindUnban,
			CommunityID: in.CommunityID,
			UserID:      in.Target.ID,
			Duration:    in.Verdict.Duration,
			Reason:      "temporary ban elapsed",
		}); err != nil {
			logger.Error("scheduling auto-unban", "err", err)
		}
	} else {
		rec.Duration = 0
	}
	eng.channelNotice(ctx, in, fmt.Sprintf("Banned **%s** for %s.", in.Target.Handle, in.Verdict.Reason))
	rec.Succeeded = true
}

// Raid actions skip hierarchy checks; kicks escalate to bans once the join
// batch has triggered enough times.
func (eng *Engine) executeRaidAction(ctx context.Context, logger *slog.Logger, in punishmentInput, rec *EnforcementRecord) {
	effective := in.Verdict.Action
	if effective == ActionRaidKick {
		count, escalate := eng.Raids.RecordTrigger(in.BatchID)
		if escalate {
			logger.Info("raid response escalated", "batch", in.BatchID, "triggers", count)
			raidEscalationCount.Inc()
			effective = ActionRaidBan
		}
	}
	rec.Effective = effective
	// raid bans are always permanent
	rec.Duration = 0

	var err error
	if effective == ActionRaidBan {
		err = eng.Platform.Ban(ctx, in.CommunityID, in.Target.ID, auditReason(in.Verdict.Reason))
	} else {
		err = eng.Platform.Kick(ctx, in.CommunityID, in.Target.ID, auditReason(in.Verdict.Reason))
	}
	if err != nil {
		eng.reportRaidFailure(ctx, logger, effective, err, in, rec)
		return
	}
	rec.Succeeded = true

	if in.Raid != nil && in.Raid.NotifyDM {
		// best-effort; the member may block DMs
		var msg string
		if effective == ActionRaidBan {
			msg = "This community has anti-raid mode activated, you're not allowed to join it."
		} else {
			msg = "This community has anti-raid mode activated, please try joining again later."
		}
		if err := eng.Platform.SendDM(ctx, in.Target.ID, msg); err != nil {
			logger.Debug("raid notice DM failed", "err", err)
		}
	}
}

// denySendFallback removes the member's send permission in the triggering
// channel when the preferred mechanism is unavailable.
func (eng *Engine) denySendFallback(ctx context.Context, logger *slog.Logger, in punishmentInput, rec *EnforcementRecord, notice string) {
	if in.ChannelID == "" {
		// no channel to overwrite (join events); nothing else to fall back to
		rec.Failed = true
		return
	}
	reason := "Automod Action | Was unable to perform another punishment"
	if err := eng.Platform.DenySendOverwrite(ctx, in.CommunityID, in.ChannelID, in.Target.ID, reason); err != nil {
		eng.reportFailure(ctx, logger, "punishment execution (channel overwrite)", err, in, rec)
		return
	}
	eng.channelNotice(ctx, in, notice)
	fallbackCount.WithLabelValues(in.Verdict.Action.String()).Inc()
	rec.FallbackUsed = true
	rec.Succeeded = true
}

// reportFailure handles an unexpected platform failure: error sink, generic
// channel notice, mark the record failed. Never propagates.
func (eng *Engine) reportFailure(ctx context.Context, logger *slog.Logger, where string, err error, in punishmentInput, rec *EnforcementRecord) {
	logger.Error("punishment execution failed", "where", where, "err", err)
	eng.Reporter.Report(ctx, where, err, in.CommunityID, in.ChannelID)
	eng.channelNotice(ctx, in, noticeExecutionFailed)
	rec.Failed = true
}

func (eng *Engine) reportRaidFailure(ctx context.Context, logger *slog.Logger, effective Action, err error, in punishmentInput, rec *EnforcementRecord) {
	where := "punishment execution (raid " + effective.String() + ")"
	logger.Error("punishment execution failed", "where", where, "err", err)
	channelID := ""
	if in.Raid != nil {
		channelID = in.Raid.ChannelID
	}
	eng.Reporter.Report(ctx, where, err, in.CommunityID, channelID)
	rec.Failed = true
}

// channelNotice posts an informational message to the triggering channel,
// best-effort.
func (eng *Engine) channelNotice(ctx context.Context, in punishmentInput, text string) {
	if in.ChannelID == "" {
		return
	}
	if err := eng.Platform.SendMessage(ctx, in.CommunityID, in.ChannelID, text); err != nil {
		eng.Logger.Debug("channel notice failed", "community", in.CommunityID, "channel", in.ChannelID, "err", err)
	}
}

func auditReason(reason string) string {
	return "Automod Action | " + reason
}

func memberHasRole(m *platform.Member, roleID string) bool {
	for _, r := range m.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}
