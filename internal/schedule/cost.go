package schedule

// Costs breaks a calendar's badness down by rule. Lower is better.
type Costs struct {
	DueDate int // matches scheduled too close to or too far from their due date
	BusyDay int // days that stray from the two-per-day target
	SameDay int // same award more than once on one day
	NearDay int // same award on adjacent days
	Total   int
}

func cost(days []*Day) Costs {
	var c Costs
	for i, d := range days {
		c.DueDate += dueDateCost(d)
		c.BusyDay += busyDayCost(d)
		var prev, next *Day
		if i > 0 {
			prev = days[i-1]
		}
		if i < len(days)-1 {
			next = days[i+1]
		}
		for _, m := range d.Matches {
			c.SameDay += siblingCost(m, d, 200)
			c.NearDay += siblingCost(m, prev, 100)
			c.NearDay += siblingCost(m, next, 100)
		}
	}
	c.Total = c.DueDate + c.BusyDay + c.SameDay + c.NearDay
	return c
}

// dueDateCost penalizes the sweet-spot misses: under 3 days of lead is nearly
// unworkable, under 5 is rushed, and past 20 the award sits stale (heavily so
// past 30).
func dueDateCost(d *Day) int {
	sum := 0
	for _, m := range d.Matches {
		switch untilDue := m.Days - d.Day; {
		case untilDue < 3:
			sum += 200
		case untilDue < 5:
			sum += 20
		case untilDue > 30:
			sum += 150
		case untilDue > 20:
			sum += 50
		}
	}
	return sum
}

// busyDayCost penalizes deviation from two matches per day.
func busyDayCost(d *Day) int {
	n := len(d.Matches) - 2
	if n < 0 {
		n = -n
	}
	return 100 * n
}

// siblingCost counts other cycles of the same award in the given day. The
// caller weighs same-day siblings at 200 and adjacent-day ones at 100.
func siblingCost(m *Candidate, d *Day, weight int) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, o := range d.Matches {
		if o.AwardID != m.AwardID && o.Name == m.Name {
			n++
		}
	}
	return weight * n
}
