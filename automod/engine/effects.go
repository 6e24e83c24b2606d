package engine

import (
	"time"

	"github.com/warden-bot/warden/automod/policystore"
)

// The punishment decision a detector arrived at. Exactly one verdict is
// produced per event: the first detector to set one wins.
type Verdict struct {
	Rule   policystore.Rule
	Reason string
	Action Action
	// punishment duration for temporary actions; zero means permanent
	Duration time.Duration
}

// Mutable container for the side-effects of rule execution. Detectors record
// what should happen here; the engine applies everything after the rule pass.
type Effects struct {
	// Delete the triggering message (honored only when the community enables
	// message deletion and the bot can manage messages). Detectors may set
	// this without a verdict: delete-on-suspicion is per-rule behavior.
	DeleteMessage bool
	// First violation verdict, if any.
	Verdict *Verdict
}

func (e *Effects) RequestDelete() {
	e.DeleteMessage = true
}

// SetVerdict records the verdict unless one is already present.
func (e *Effects) SetVerdict(v Verdict) {
	if e.Verdict == nil {
		e.Verdict = &v
	}
}
