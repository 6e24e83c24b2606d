package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/warden-bot/warden/automod/platform"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/ratewindow"
)

// The primary interface exposed to detector rules. All other contexts derive
// from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or
	// sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields pre-populated
	Logger *slog.Logger

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// Context for message-create and message-edit events.
type MessageContext struct {
	BaseContext

	Event  MessageEvent
	Config *policystore.AutomodConfig
	// the (still-present) author
	Member *platform.Member

	bot      *platform.Member
	botPerms platform.Permissions
}

// Context for member-join events while raid mode is active.
type JoinContext struct {
	BaseContext

	Event  JoinEvent
	Config *policystore.AutomodConfig
	Raid   *policystore.RaidPolicy

	bot *platform.Member
}

// request external state via engine (indirect)

// RecordWindow counts one occurrence for the key in the named window and
// reports whether it triggered. Store errors roll up into c.Err and read as
// "no trigger".
func (c *BaseContext) RecordWindow(w ratewindow.Window, key string, t time.Time) bool {
	out, err := c.engine.Windows.Record(c.Ctx, w, key, t)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return false
	}
	return out
}

func (c *BaseContext) ResetWindow(w ratewindow.Window, key string) {
	if err := c.engine.Windows.Reset(c.Ctx, w, key); err != nil {
		if nil == c.Err {
			c.Err = err
		}
	}
}

// checks if `val` is an element of set `name`
func (c *BaseContext) InSet(name, val string) bool {
	out, err := c.engine.Whitelists.InSet(c.Ctx, name, val)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return false
	}
	return out
}

// RulePolicy returns the community's policy for one rule; nil when the rule
// is disabled (or on store failure, which rolls up into c.Err).
func (c *MessageContext) RulePolicy(rule policystore.Rule) *policystore.Policy {
	out, err := c.engine.Policies.RulePolicy(c.Ctx, c.Event.CommunityID, rule)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return nil
	}
	return out
}

// ResolveInvite looks an invite code up against the platform. Lookup failures
// are returned directly (not rolled up): the invite detector fails open on
// them, per policy.
func (c *MessageContext) ResolveInvite(code string) (*platform.Invite, error) {
	return c.engine.Platform.ResolveInvite(c.Ctx, code)
}

// Rate-window subject key for the message author.
func (c *MessageContext) SubjectKey() string {
	return c.Event.CommunityID + "/" + c.Event.AuthorID
}

// update effects (indirect) ======

func (c *MessageContext) RequestDelete() {
	c.effects.RequestDelete()
}

func (c *MessageContext) Violate(rule policystore.Rule, reason string, policy *policystore.Policy) {
	c.effects.SetVerdict(Verdict{
		Rule:     rule,
		Reason:   reason,
		Action:   ActionForSeverity(policy.Severity),
		Duration: policy.Duration,
	})
}

func (c *JoinContext) ViolateJoin(action Action, reason string) {
	c.effects.SetVerdict(Verdict{
		Rule:   policystore.RuleRaid,
		Reason: reason,
		Action: action,
	})
}

func NewMessageContext(ctx context.Context, eng *Engine, evt MessageEvent, cfg *policystore.AutomodConfig, member, bot *platform.Member, botPerms platform.Permissions) MessageContext {
	return MessageContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("community", evt.CommunityID, "channel", evt.ChannelID, "author", evt.AuthorID),
			engine:  eng,
			effects: &Effects{},
		},
		Event:    evt,
		Config:   cfg,
		Member:   member,
		bot:      bot,
		botPerms: botPerms,
	}
}

func NewJoinContext(ctx context.Context, eng *Engine, evt JoinEvent, cfg *policystore.AutomodConfig, raid *policystore.RaidPolicy, bot *platform.Member) JoinContext {
	return JoinContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("community", evt.CommunityID, "member", evt.MemberID),
			engine:  eng,
			effects: &Effects{},
		},
		Event:  evt,
		Config: cfg,
		Raid:   raid,
		bot:    bot,
	}
}
