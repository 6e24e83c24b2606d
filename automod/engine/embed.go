package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/warden-bot/warden/automod/platform"
)

const (
	colorWarn   = 0xF39C12
	colorDanger = 0xE74C3C
)

func actionEmbedStyle(a Action) (title string, color int) {
	switch a {
	case ActionMute:
		return "\U0001F507 Member Muted", colorWarn
	case ActionTempMute:
		return "\U0001F507 Member Temp-Muted", colorWarn
	case ActionKick, ActionRaidKick:
		return "\U0001F462 Member Kicked", colorWarn
	case ActionBan, ActionRaidBan:
		return "\U0001F528 Member Banned", colorDanger
	case ActionTempBan:
		return "\U0001F528 Member Temp-Banned", colorDanger
	}
	return "Member Punished", colorWarn
}

// emitLogEmbed posts an entry to the community's moderation log channel, if
// one is configured. Best-effort: the log channel may have been deleted out
// from under us.
func (eng *Engine) emitLogEmbed(ctx context.Context, communityID, logChannelID string, rec *EnforcementRecord) {
	if logChannelID == "" {
		return
	}
	title, color := actionEmbedStyle(rec.Effective)

	desc := fmt.Sprintf("**Member:** %s", rec.Target.Handle)
	if rec.Duration > 0 {
		desc += fmt.Sprintf("\n**Duration:** %s", rec.Duration)
	}
	desc += fmt.Sprintf("\n**Reason:** %s", rec.Reason)
	if rec.FallbackUsed {
		desc += "\n**Note:** fell back to a channel permission overwrite"
	}
	if rec.Failed {
		desc += "\n**Note:** punishment execution failed, see error log"
	}

	embed := platform.Embed{
		Title:       title,
		Description: desc,
		Color:       color,
		AuthorName:  "Automod Action",
		AuthorIcon:  rec.Target.AvatarURL,
		Footer:      fmt.Sprintf("Member ID: %s", rec.Target.ID),
		Timestamp:   time.Now().UTC(),
	}
	if err := eng.Platform.SendEmbed(ctx, communityID, logChannelID, embed); err != nil {
		eng.Logger.Debug("moderation log embed failed", "community", communityID, "channel", logChannelID, "err", err)
	}
}
