package rules

import (
	"fmt"
	"time"

	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/helpers"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/ratewindow"
)

var linksWindow = ratewindow.Window{
	Name:   "links",
	Limit:  5,
	Period: 60 * time.Second,
}

var _ engine.MessageRuleFunc = LinksRule

// LinksRule flags repeated posting of external links. Invite links are the
// invite detector's business and skipped here entirely.
func LinksRule(c *engine.MessageContext) error {
	policy := c.RulePolicy(policystore.RuleLinks)
	if policy == nil {
		return nil
	}
	if helpers.ContainsInvite(c.Event.Content) {
		return nil
	}
	urls := helpers.ExtractTextURLs(c.Event.Content)
	if len(urls) == 0 {
		return nil
	}

	c.RequestDelete()
	if c.RecordWindow(linksWindow, c.SubjectKey(), c.Event.CreatedAt) {
		c.Violate(policystore.RuleLinks, fmt.Sprintf("Sending links (%d within a minute)", linksWindow.Limit+1), policy)
	}
	return nil
}
