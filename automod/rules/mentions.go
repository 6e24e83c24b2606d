package rules

import (
	"fmt"
	"time"

	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/helpers"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/ratewindow"
)

var mentionsWindow = ratewindow.Window{
	Name:   "massmention",
	Limit:  5,
	Period: 17 * time.Second,
}

var _ engine.MessageRuleFunc = MassMentionRule

// MassMentionRule flags messages pinging more distinct users than the
// community's configured limit.
func MassMentionRule(c *engine.MessageContext) error {
	policy := c.RulePolicy(policystore.RuleMassMention)
	if policy == nil {
		return nil
	}
	distinct := helpers.DedupeStrings(c.Event.Mentions)
	if len(distinct) <= policy.MentionLimit() {
		return nil
	}

	c.RequestDelete()
	if c.RecordWindow(mentionsWindow, c.SubjectKey(), c.Event.CreatedAt) {
		c.Violate(policystore.RuleMassMention, fmt.Sprintf("Mass mentions (over %d users)", policy.MentionLimit()), policy)
	}
	return nil
}
