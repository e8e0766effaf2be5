package award

import "time"

// Status is a match's workflow state.
type Status string

const (
	StatusNone      Status = ""
	StatusTargeted  Status = "targeted"
	StatusSubmitted Status = "submitted"
	StatusWon       Status = "won"
)

// PriorMatch is the slice of a persisted match the history layer needs.
// Award identity fields come from the match's award cycle.
type PriorMatch struct {
	ID        string
	AwardID   string
	AwardName string
	Category  string
	SponsorID string
	OpenDate  *time.Time
	Status    Status
	Created   time.Time
}

const (
	// cousinWindowDays bounds how far back repeats of an award family count.
	cousinWindowDays = 183
	// maxRecentCousins caps matches from one award family inside the window.
	maxRecentCousins = 6
)

// Cousins filters the book's prior matches down to those sharing the award's
// name and sponsor, regardless of category or cycle.
func Cousins(c *Criteria, prior []PriorMatch) []PriorMatch {
	var cousins []PriorMatch
	for _, m := range prior {
		if m.AwardName == c.Name && m.SponsorID == c.SponsorID {
			cousins = append(cousins, m)
		}
	}
	return cousins
}

// FilteredScore is Score with the book's submission history applied.
//
// A book that already won this exact award (name, category, sponsor) is never
// resurfaced, and an award family matched six times in the last six months is
// rate-limited; both checks are skipped when always is set, which the cousin
// rescoring path uses. Otherwise at most one cousin penalty lands, in
// priority order, plus the stacking frequent-and-due-soon penalty.
func FilteredScore(c *Criteria, b *Book, prior []PriorMatch, now time.Time, always bool) Breakdown {
	scores := Score(c, b, now)
	if scores == nil {
		return nil
	}
	if !always {
		for _, m := range prior {
			if m.Status == StatusWon && m.AwardName == c.Name && m.Category == c.Category && m.SponsorID == c.SponsorID {
				// won in a prior cycle, never show again
				return nil
			}
		}
	}
	cousins := Cousins(c, prior)
	if len(cousins) == 0 {
		return scores
	}

	var recent, submitted []PriorMatch
	won := false
	for _, m := range cousins {
		if now.Sub(m.Created).Hours()/24 < cousinWindowDays {
			recent = append(recent, m)
		}
		switch m.Status {
		case StatusSubmitted:
			submitted = append(submitted, m)
		case StatusWon:
			won = true
		}
	}
	if len(recent) >= maxRecentCousins && !always {
		return nil
	}

	sameCycle := func(m PriorMatch) bool {
		return m.OpenDate != nil && c.OpenDate != nil && m.OpenDate.Equal(*c.OpenDate)
	}

	switch {
	case won:
		// won in any category in any cycle
		scores.Add("wonCousin", -161)
	case len(submitted) > 0:
		twin := false
		sibling := false
		for _, m := range submitted {
			if m.Category == c.Category {
				twin = true
				break
			}
			if sameCycle(m) {
				sibling = true
			}
		}
		switch {
		case twin:
			// submitted for the same category in a prior cycle
			scores.Add("submitTwin", -121)
		case sibling:
			// submitted in any category in the current cycle
			scores.Add("submitSibling", -101)
		default:
			// submitted in any category in a prior cycle
			scores.Add("submitCousin", -81)
		}
	default:
		for _, m := range recent {
			if m.Status == StatusTargeted {
				// targeted in any category within the window
				scores.Add("targetCousin", -41)
				break
			}
		}
	}

	// frequent award due soon that was already matched more than once this cycle
	if c.DueDate != nil && c.CyclesPerYear > 3 && daysBetween(*c.DueDate, now) < 13 {
		thisCycle := 0
		for _, m := range cousins {
			if sameCycle(m) {
				thisCycle++
			}
		}
		if thisCycle > 1 {
			scores.Add("frequentDueSoon", -100)
		}
	}
	return scores
}
