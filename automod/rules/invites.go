package rules

import (
	"time"

	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/helpers"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/ratewindow"
)

var invitesWindow = ratewindow.Window{
	Name:   "invites",
	Limit:  5,
	Period: 60 * time.Second,
}

var _ engine.MessageRuleFunc = InvitesRule

// InvitesRule flags advertising via community invite links. An invite that
// resolves back to this community, with no other links alongside it, is
// legitimate sharing and exempt. Invite resolution failures fail open: the
// code is treated as dead and never counted.
func InvitesRule(c *engine.MessageContext) error {
	policy := c.RulePolicy(policystore.RuleInvites)
	if policy == nil {
		return nil
	}
	codes := helpers.ExtractInviteCodes(c.Event.Content)
	if len(codes) == 0 {
		return nil
	}

	foreign := false
	unresolved := false
	for _, code := range helpers.DedupeStrings(codes) {
		invite, err := c.ResolveInvite(code)
		if err != nil {
			c.Logger.Debug("invite resolution failed", "code", code, "err", err)
			unresolved = true
			continue
		}
		if invite.CommunityID != c.Event.CommunityID {
			foreign = true
			break
		}
	}
	if !foreign {
		// own-community invite is only exempt as the sole link in the message
		if onlyInviteLinks(c.Event.Content) {
			return nil
		}
		if unresolved {
			// can't confirm where the invite leads; delete on suspicion but
			// never count an unconfirmed invite toward punishment
			c.RequestDelete()
			return nil
		}
	}

	c.RequestDelete()
	if c.RecordWindow(invitesWindow, c.SubjectKey(), c.Event.CreatedAt) {
		c.Violate(policystore.RuleInvites, "Advertising other communities", policy)
	}
	return nil
}

func onlyInviteLinks(content string) bool {
	for _, u := range helpers.ExtractTextURLs(content) {
		if !helpers.ContainsInvite(u) {
			return false
		}
	}
	return true
}
