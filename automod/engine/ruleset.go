package engine

type MessageRuleFunc func(c *MessageContext) error
type JoinRuleFunc func(c *JoinContext) error

// Holds the detectors to run per event kind, in priority order. Message rules
// run until the first one produces a verdict; the rest are skipped for that
// event.
type RuleSet struct {
	MessageRules []MessageRuleFunc
	JoinRules    []JoinRuleFunc
}

func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	for _, f := range r.MessageRules {
		if err := f(c); err != nil {
			return err
		}
		if c.effects.Verdict != nil {
			// first violation wins
			break
		}
	}
	return nil
}

func (r *RuleSet) CallJoinRules(c *JoinContext) error {
	for _, f := range r.JoinRules {
		if err := f(c); err != nil {
			return err
		}
		if c.effects.Verdict != nil {
			break
		}
	}
	return nil
}
