package rules

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/helpers"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/ratewindow"
)

// messages this short can't meaningfully "shout"
const capsMinLength = 10

var capsWindow = ratewindow.Window{
	Name:   "masscaps",
	Limit:  8,
	Period: 10 * time.Second,
}

var _ engine.MessageRuleFunc = MassCapsRule

// MassCapsRule flags sustained shouting: messages whose uppercase share
// crosses the community's configured percentage, repeatedly within a short
// window.
func MassCapsRule(c *engine.MessageContext) error {
	policy := c.RulePolicy(policystore.RuleMassCaps)
	if policy == nil {
		return nil
	}
	length := utf8.RuneCountInString(c.Event.Content)
	if length <= capsMinLength {
		return nil
	}
	pct := helpers.CountUppercase(c.Event.Content) * 100 / length
	if pct < policy.CapsPercentage() {
		return nil
	}

	c.RequestDelete()
	if c.RecordWindow(capsWindow, c.SubjectKey(), c.Event.CreatedAt) {
		c.Violate(policystore.RuleMassCaps, fmt.Sprintf("Mass caps (over %d%% uppercase)", policy.CapsPercentage()), policy)
	}
	return nil
}
