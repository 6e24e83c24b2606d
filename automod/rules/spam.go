package rules

import (
	"time"

	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/helpers"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/ratewindow"
)

// Two independent windows, combined with OR: repeated identical content, and
// raw message throughput regardless of content.
var (
	spamContentWindow = ratewindow.Window{
		Name:   "spam-content",
		Limit:  10,
		Period: 17 * time.Second,
	}
	spamUserWindow = ratewindow.Window{
		Name:   "spam-user",
		Limit:  10,
		Period: 12 * time.Second,
	}
)

var _ engine.MessageRuleFunc = SpamRule

// SpamRule flags message flooding. It never deletes: by the time the window
// trips, the backlog is many messages deep and the punishment (typically a
// mute) is what actually stops the flood.
func SpamRule(c *engine.MessageContext) error {
	policy := c.RulePolicy(policystore.RuleSpam)
	if policy == nil {
		return nil
	}

	contentKey := c.SubjectKey() + "/" + helpers.ContentFingerprint(c.Event.Content)
	hitContent := c.RecordWindow(spamContentWindow, contentKey, c.Event.CreatedAt)
	hitUser := c.RecordWindow(spamUserWindow, c.SubjectKey(), c.Event.CreatedAt)
	if !hitContent && !hitUser {
		return nil
	}

	// either window firing counts as one violation; clear both so the
	// punished member starts from a clean slate
	c.ResetWindow(spamContentWindow, contentKey)
	c.ResetWindow(spamUserWindow, c.SubjectKey())
	c.Violate(policystore.RuleSpam, "Spamming messages", policy)
	return nil
}
