package award

import "time"

// Default lead time required between targeting an award and its due date.
// End users need runway to review and submit; award masters handle submission
// same-day.
const (
	UserLeadDays        = 11
	AwardMasterLeadDays = 0
)

// Targetable reports whether the award can still be earmarked for submission:
// the due date must be more than leadDays out, digital submission must be
// accepted, and the effective fee must not exceed $100.
func Targetable(c *Criteria, now time.Time, leadDays int) bool {
	if c.DueDate != nil {
		if !c.DueDate.After(now.AddDate(0, 0, leadDays)) {
			return false
		}
	}
	if !c.AllowsDigital {
		return false
	}
	return c.EffectiveFee() <= 100
}
