package award

import (
	"testing"
	"time"
)

func pm(status Status, category string, createdDaysAgo int, open *time.Time) PriorMatch {
	return PriorMatch{
		ID:        "match-1",
		AwardID:   "award-0",
		AwardName: "NAME",
		Category:  category,
		SponsorID: "sponsor-1",
		OpenDate:  open,
		Status:    status,
		Created:   today.AddDate(0, 0, -createdDaysAgo),
	}
}

func TestFilteredScoreNoHistory(t *testing.T) {
	scores := FilteredScore(crit(nil), book(nil), nil, today, false)
	if scores == nil {
		t.Fatal("FilteredScore = nil, want breakdown")
	}
	if scores.Total() != 20 {
		t.Errorf("Total = %v, want the bare score", scores.Total())
	}
}

func TestFilteredScoreAlreadyWon(t *testing.T) {
	prior := []PriorMatch{pm(StatusWon, "CATEGORY", 400, nil)}

	if scores := FilteredScore(crit(nil), book(nil), prior, today, false); scores != nil {
		t.Errorf("FilteredScore = %v, want nil for an award already won", scores)
	}
	// the rescoring path still needs a number
	if scores := FilteredScore(crit(nil), book(nil), prior, today, true); scores == nil {
		t.Error("FilteredScore = nil with always set, want breakdown")
	}
}

func TestFilteredScoreRateLimit(t *testing.T) {
	var prior []PriorMatch
	for i := 0; i < 6; i++ {
		prior = append(prior, pm(StatusNone, "CATEGORY", 10+i, nil))
	}

	if scores := FilteredScore(crit(nil), book(nil), prior, today, false); scores != nil {
		t.Errorf("FilteredScore = %v, want nil after 6 recent cousins", scores)
	}
	if scores := FilteredScore(crit(nil), book(nil), prior, today, true); scores == nil {
		t.Error("FilteredScore = nil with always set, want breakdown")
	}

	// the same six spread over a year do not rate-limit
	prior = nil
	for i := 0; i < 6; i++ {
		prior = append(prior, pm(StatusNone, "CATEGORY", 100+i*50, nil))
	}
	if scores := FilteredScore(crit(nil), book(nil), prior, today, false); scores == nil {
		t.Error("FilteredScore = nil for stale cousins, want breakdown")
	}
}

func TestFilteredScorePenalties(t *testing.T) {
	open := days(-30)
	otherOpen := days(-200)
	c := crit(func(c *Criteria) { c.OpenDate = open })

	tests := []struct {
		name    string
		prior   []PriorMatch
		wantKey string
		wantVal int
	}{
		{
			name:    "won any category dominates",
			prior:   []PriorMatch{pm(StatusWon, "OTHER", 300, otherOpen), pm(StatusSubmitted, "CATEGORY", 300, otherOpen)},
			wantKey: "wonCousin",
			wantVal: -161,
		},
		{
			name:    "submitted same category",
			prior:   []PriorMatch{pm(StatusSubmitted, "CATEGORY", 300, otherOpen)},
			wantKey: "submitTwin",
			wantVal: -121,
		},
		{
			name:    "submitted same cycle",
			prior:   []PriorMatch{pm(StatusSubmitted, "OTHER", 20, open)},
			wantKey: "submitSibling",
			wantVal: -101,
		},
		{
			name:    "submitted another cycle",
			prior:   []PriorMatch{pm(StatusSubmitted, "OTHER", 300, otherOpen)},
			wantKey: "submitCousin",
			wantVal: -81,
		},
		{
			name:    "targeted recently",
			prior:   []PriorMatch{pm(StatusTargeted, "OTHER", 30, otherOpen)},
			wantKey: "targetCousin",
			wantVal: -41,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := FilteredScore(c, book(nil), tt.prior, today, false)
			if scores == nil {
				t.Fatal("FilteredScore = nil, want breakdown")
			}
			if scores[tt.wantKey] != tt.wantVal {
				t.Errorf("%s = %v, want %v", tt.wantKey, scores[tt.wantKey], tt.wantVal)
			}
			if scores.Total() != 20+tt.wantVal {
				t.Errorf("Total = %v, want %v", scores.Total(), 20+tt.wantVal)
			}
		})
	}
}

func TestFilteredScoreStaleTargetIgnored(t *testing.T) {
	prior := []PriorMatch{pm(StatusTargeted, "OTHER", 200, nil)}

	scores := FilteredScore(crit(nil), book(nil), prior, today, false)
	if scores == nil {
		t.Fatal("FilteredScore = nil, want breakdown")
	}
	if _, ok := scores["targetCousin"]; ok {
		t.Errorf("targetCousin = %v, want no penalty past the window", scores["targetCousin"])
	}
}

func TestFilteredScoreUnrelatedHistory(t *testing.T) {
	prior := []PriorMatch{
		{AwardName: "OTHER AWARD", SponsorID: "sponsor-1", Status: StatusWon, Created: today},
		{AwardName: "NAME", SponsorID: "sponsor-2", Status: StatusSubmitted, Created: today},
	}

	scores := FilteredScore(crit(nil), book(nil), prior, today, false)
	if scores == nil {
		t.Fatal("FilteredScore = nil, want breakdown")
	}
	if scores.Total() != 20 {
		t.Errorf("Total = %v, want no penalties from unrelated awards", scores.Total())
	}
}

func TestFilteredScoreFrequentDueSoon(t *testing.T) {
	open := days(-10)
	c := crit(func(c *Criteria) {
		c.OpenDate = open
		c.CyclesPerYear = 4
		c.DueDate = days(10)
	})
	prior := []PriorMatch{
		pm(StatusTargeted, "OTHER", 5, open),
		pm(StatusNone, "OTHER 2", 3, open),
	}

	scores := FilteredScore(c, book(nil), prior, today, false)
	if scores == nil {
		t.Fatal("FilteredScore = nil, want breakdown")
	}
	if scores["frequentDueSoon"] != -100 {
		t.Errorf("frequentDueSoon = %v, want -100", scores["frequentDueSoon"])
	}
	// stacks with the cousin penalty
	if scores["targetCousin"] != -41 {
		t.Errorf("targetCousin = %v, want -41 alongside frequentDueSoon", scores["targetCousin"])
	}
}
