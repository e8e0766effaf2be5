package policy

import (
	"testing"
	"time"
)

// base keeps every timestamp in a test relative to one instant, so the exact
// 33 minute boundary case is stable.
var base = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func sub(renewedAgo time.Duration, features ...string) *Subscription {
	if features == nil {
		features = []string{FeatureMatch, FeatureTarget}
	}
	return &Subscription{
		ID:       "sub-1",
		Renewed:  base.Add(-renewedAgo),
		Features: features,
	}
}

func ago(d time.Duration) *time.Time {
	t := base.Add(-d)
	return &t
}

const day = 24 * time.Hour

func TestShouldMatch(t *testing.T) {
	p := New(0, nil)
	now := base

	tests := []struct {
		name       string
		sub        *Subscription
		prior      *time.Time
		mode       MatchMode
		wantOK     bool
		wantReason Reason
	}{
		{
			name:       "first match runs even in none mode",
			sub:        sub(22 * day),
			prior:      nil,
			mode:       MatchNone,
			wantOK:     true,
			wantReason: ReasonFirstMatch,
		},
		{
			name:   "never matches when asked not to",
			sub:    sub(2 * day),
			prior:  ago(3 * day),
			mode:   MatchNone,
			wantOK: false,
		},
		{
			name:       "always matches when forced",
			sub:        sub(2 * day),
			prior:      ago(0),
			mode:       MatchForce,
			wantOK:     true,
			wantReason: ReasonForced,
		},
		{
			name:   "no match feature",
			sub:    sub(2*day, FeatureTarget),
			prior:  ago(0),
			wantOK: false,
		},
		{
			name:   "matched earlier today",
			sub:    sub(22 * day),
			prior:  ago(time.Hour),
			wantOK: false,
		},
		{
			name:       "enough time since prior match",
			sub:        sub(22 * day),
			prior:      ago(3 * day),
			wantOK:     true,
			wantReason: ReasonEnoughTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := p.ShouldMatch(tt.sub, tt.prior, tt.mode, now)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestShouldTarget(t *testing.T) {
	p := New(0, nil)
	now := base

	tests := []struct {
		name       string
		sub        *Subscription
		prior      *time.Time
		mode       TargetMode
		wantOK     bool
		wantReason Reason
	}{
		{
			name:   "never targets when asked not to",
			sub:    sub(2 * day),
			mode:   TargetNone,
			wantOK: false,
		},
		{
			name:       "always targets when forced",
			sub:        sub(2 * day),
			mode:       TargetForce,
			wantOK:     true,
			wantReason: ReasonForceTarget,
		},
		{
			name:       "force submit",
			sub:        sub(2 * day),
			mode:       TargetForceSubmit,
			wantOK:     true,
			wantReason: ReasonForceSubmit,
		},
		{
			name:   "no target feature",
			sub:    sub(2*day, FeatureMatch),
			wantOK: false,
		},
		{
			name:       "first target",
			sub:        sub(2 * day),
			wantOK:     true,
			wantReason: ReasonFirstTarget,
		},
		{
			name:   "already targeted since renewal",
			sub:    sub(3 * day),
			prior:  ago(2 * day),
			wantOK: false,
		},
		{
			name:   "targeted exactly at renewal",
			sub:    sub(33 * day),
			prior:  ago(33 * day),
			wantOK: false,
		},
		{
			name:   "renewal too fresh for the scheduled job",
			sub:    sub(30 * time.Minute),
			prior:  ago(1 * day),
			wantOK: false,
		},
		{
			name:       "renewal settled",
			sub:        sub(33 * time.Minute),
			prior:      ago(1 * day),
			wantOK:     true,
			wantReason: ReasonScheduled,
		},
		{
			name:       "webhook skips the settle window",
			sub:        sub(30 * time.Minute),
			prior:      ago(1 * day),
			mode:       TargetWebhook,
			wantOK:     true,
			wantReason: ReasonWebhook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := p.ShouldTarget(tt.sub, tt.prior, tt.mode, now)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestParseModes(t *testing.T) {
	if _, err := ParseMatchMode("force"); err != nil {
		t.Errorf("ParseMatchMode(force) error = %v", err)
	}
	if _, err := ParseMatchMode("bogus"); err == nil {
		t.Error("ParseMatchMode(bogus) expected error")
	}
	if _, err := ParseTargetMode("force-submit"); err != nil {
		t.Errorf("ParseTargetMode(force-submit) error = %v", err)
	}
	if _, err := ParseTargetMode("force"); err == nil {
		t.Error("ParseTargetMode(force) expected error")
	}
}
