// Package policy decides whether a matching or targeting cycle should run
// for a subscription. Decisions carry a reason so the pipeline can log why
// a cycle fired; a false decision carries no reason.
package policy

import (
	"fmt"
	"time"

	"github.com/frankdev0428/bap/internal/randx"
)

// MatchMode overrides the normal matching cadence.
type MatchMode string

const (
	MatchDefault MatchMode = ""      // normal cadence
	MatchNone    MatchMode = "none"  // skip matching entirely
	MatchForce   MatchMode = "force" // match even if not enough time since the last one
)

// ParseMatchMode validates a mode flag value.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(s); m {
	case MatchDefault, MatchNone, MatchForce:
		return m, nil
	}
	return MatchDefault, fmt.Errorf("unknown matching mode %q", s)
}

// TargetMode overrides the normal targeting cadence.
type TargetMode string

const (
	TargetDefault     TargetMode = ""
	TargetNone        TargetMode = "none"
	TargetForce       TargetMode = "force-target" // target without submission, even if too soon
	TargetForceSubmit TargetMode = "force-submit" // target for submission, even if too soon
	TargetWebhook     TargetMode = "webhook"      // low-latency path taken on a renewal event
)

// ParseTargetMode validates a mode flag value.
func ParseTargetMode(s string) (TargetMode, error) {
	switch m := TargetMode(s); m {
	case TargetDefault, TargetNone, TargetForce, TargetForceSubmit, TargetWebhook:
		return m, nil
	}
	return TargetDefault, fmt.Errorf("unknown targeting mode %q", s)
}

// Reason tags why a decision came out positive.
type Reason string

const (
	ReasonFirstMatch  Reason = "first match"
	ReasonForced      Reason = "forced"
	ReasonEnoughTime  Reason = "enough time"
	ReasonFirstTarget Reason = "first target"
	ReasonForceTarget Reason = "force-target"
	ReasonForceSubmit Reason = "force-submit"
	ReasonWebhook     Reason = "webhook renewal"
	ReasonScheduled   Reason = "scheduled renewal"
)

// Product feature flags consulted by the policy.
const (
	FeatureMatch  = "match"
	FeatureTarget = "target"
	FeatureSubmit = "submit"
)

// Subscription is the slice of subscription state the policy reads.
type Subscription struct {
	ID       string
	Renewed  time.Time
	Features []string
}

// HasFeature reports whether the subscription's product grants a feature.
func (s *Subscription) HasFeature(name string) bool {
	for _, f := range s.Features {
		if f == name {
			return true
		}
	}
	return false
}

// DefaultSettle is how long the periodic job waits after a renewal before
// targeting. Tens of minutes, so a renewal webhook and the hourly job cannot
// both win the race to create the first post-renewal target.
const DefaultSettle = 33 * time.Minute

// matchGaps is the required-days-between-matches distribution, biased toward
// one-day gaps to land 3-4 matches per week.
var matchGaps = []int{1, 1, 1, 1, 2, 2, 3}

// Policy evaluates match and target decisions.
type Policy struct {
	settle time.Duration
	rng    randx.Source
}

// New returns a policy. A zero settle means DefaultSettle; a nil source
// means a non-deterministic one.
func New(settle time.Duration, rng randx.Source) *Policy {
	if settle == 0 {
		settle = DefaultSettle
	}
	if rng == nil {
		rng = randx.New()
	}
	return &Policy{settle: settle, rng: rng}
}

// ShouldMatch decides whether a matching cycle should run now. prior is the
// creation time of the subscription's most recent match, nil when there has
// never been one. The first cycle always runs, even in none mode, so a new
// subscription gets its primed set of matches.
func (p *Policy) ShouldMatch(sub *Subscription, prior *time.Time, mode MatchMode, now time.Time) (Reason, bool) {
	if prior == nil {
		return ReasonFirstMatch, true
	}
	if mode == MatchNone {
		return "", false
	}
	if mode == MatchForce {
		return ReasonForced, true
	}
	if !sub.HasFeature(FeatureMatch) {
		return "", false
	}
	days := int(now.Sub(*prior).Hours() / 24)
	gap := randx.Item(p.rng, matchGaps)
	if days >= gap {
		return ReasonEnoughTime, true
	}
	return "", false
}

// ShouldTarget decides whether a targeting cycle should run now. prior is
// the targeted time of the most recent renewal target, nil when there has
// never been one. At most one target per renewal: a prior target at or after
// the renewal blocks until the next renewal.
func (p *Policy) ShouldTarget(sub *Subscription, prior *time.Time, mode TargetMode, now time.Time) (Reason, bool) {
	if mode == TargetNone {
		return "", false
	}
	if mode == TargetForce {
		return ReasonForceTarget, true
	}
	if mode == TargetForceSubmit {
		return ReasonForceSubmit, true
	}
	if !sub.HasFeature(FeatureTarget) {
		return "", false
	}
	if prior == nil {
		return ReasonFirstTarget, true
	}
	if !prior.Before(sub.Renewed) {
		// already targeted since this renewal
		return "", false
	}
	if mode == TargetWebhook {
		return ReasonWebhook, true
	}
	if now.Sub(sub.Renewed) >= p.settle {
		return ReasonScheduled, true
	}
	return "", false
}
