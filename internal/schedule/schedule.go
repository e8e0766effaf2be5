// Package schedule spreads scored candidates across a rolling calendar.
//
// Scheduling goals:
//   - matches happen when they are 5-20 days from due
//   - 3-4 matches per week, aiming for 2 per day
//   - no matches from the same award on the same day
//   - no matches from the same award on consecutive days
//
// Some of these rules are addressed during initial placement, some during
// annealing, and the sibling ordering in a final pass.
package schedule

import (
	"sort"
	"time"

	"github.com/frankdev0428/bap/internal/award"
	"github.com/frankdev0428/bap/internal/randx"
)

// Candidate is a scored (book, award) pairing eligible for scheduling. The
// planner reads only Name, AwardID, Score, and Days; the rest rides along so
// the caller can persist matches from the planned order.
type Candidate struct {
	AwardID        string          `json:"award_id"`
	MatchID        string          `json:"match_id,omitempty"` // set when re-targeting an existing match
	SubscriptionID string          `json:"subscription_id,omitempty"`
	BookID         string          `json:"book_id,omitempty"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Score          int             `json:"score"`
	Scores         award.Breakdown `json:"scores,omitempty"`
	Fee            float64         `json:"fee,omitempty"`
	AllowsDigital  bool            `json:"allows_digital"`
	NonContent     bool            `json:"non_content,omitempty"`
	DueDate        time.Time       `json:"due_date"`
	Days           int             `json:"days"` // days until due at planning time
	DoSubmission   bool            `json:"do_submission,omitempty"`
}

// Day is one bucket of the working calendar. Day offsets are relative to the
// planner's "today"; buckets are mutated in place during annealing and
// discarded once the flattened order is returned.
type Day struct {
	Day     int
	Matches []*Candidate
}

// Config tunes the planner.
type Config struct {
	Today    int          // day offset treated as today, supports backfilling
	LeadDays int          // buffer kept before each award's due date
	Horizon  int          // how far ahead to plan, in days
	Rand     randx.Source // nil means a non-deterministic source
}

// Planner builds day-by-day schedules for candidate lists.
type Planner struct {
	cfg Config
	rng randx.Source
}

// New returns a planner, filling in defaults for zero config fields
// (1 lead day, 30 day horizon).
func New(cfg Config) *Planner {
	if cfg.LeadDays == 0 {
		cfg.LeadDays = 1
	}
	if cfg.Horizon == 0 {
		cfg.Horizon = 30
	}
	rng := cfg.Rand
	if rng == nil {
		rng = randx.New()
	}
	return &Planner{cfg: cfg, rng: rng}
}

// Plan reorders candidates into schedule order: the flattened day buckets of
// an annealed calendar. Candidates must be sorted lowest score first; the
// planner fills slots from the top of the list. Fewer than 3 candidates are
// returned unchanged.
func (p *Planner) Plan(candidates []*Candidate) []*Candidate {
	if len(candidates) < 3 {
		return candidates
	}
	pool := make([]*Candidate, len(candidates))
	copy(pool, candidates)
	days := p.anneal(p.initial(pool))
	reorder(days)

	var out []*Candidate
	for _, day := range days {
		out = append(out, day.Matches...)
	}
	return out
}

// reorder puts higher rated siblings in front of lower rated siblings by
// swapping day slots, so the best instance of an award surfaces first even
// when the annealer placed it later.
func reorder(days []*Day) {
	type slot struct {
		m    *Candidate
		i, j int
	}
	siblings := map[string][]slot{}
	for i, day := range days {
		for j, m := range day.Matches {
			l := siblings[m.Name]
			if len(l) > 0 && m.Score > l[0].m.Score {
				l = append([]slot{{m, i, j}}, l...)
			} else {
				l = append(l, slot{m, i, j})
			}
			siblings[m.Name] = l
		}
	}
	for _, l := range siblings {
		if len(l) < 2 {
			continue
		}
		highest := l[0]
		first := l[1]
		for _, s := range l[2:] {
			if s.i < first.i || (s.i == first.i && s.j < first.j) {
				first = s
			}
		}
		if highest.i > first.i {
			days[first.i].Matches[first.j] = highest.m
			days[highest.i].Matches[highest.j] = first.m
		}
	}
}

// initial lays out the working calendar and places candidates greedily.
// The pool is consumed from the back, so it must be sorted lowest score
// first to give higher scored candidates first pick of the slots.
func (p *Planner) initial(pool []*Candidate) []*Day {
	// spread out based on number of candidates
	nextDayRolls := []int{1, 1, 1, 1, 2, 2, 3}
	if len(pool) < 15 {
		nextDayRolls = []int{2, 2, 3, 3, 4}
	} else if len(pool) < 30 {
		nextDayRolls = []int{1, 2, 2, 2, 3, 3, 4}
	}

	var days []*Day
	have := map[int]bool{}
	slots := map[string]int{}
	for _, m := range pool {
		if _, ok := slots[m.Name]; ok {
			continue
		}
		// first candidate of each award is representative; cap how many of
		// an award that is due soon may appear at all
		switch {
		case m.Days < 6:
			slots[m.Name] = 3
		case m.Days < 12:
			slots[m.Name] = 4
		default:
			slots[m.Name] = 6
		}
		// anchor a day with enough lead time for this award
		day := min(p.cfg.Horizon, m.Days-p.cfg.LeadDays)
		if !have[day] {
			days = append(days, &Day{Day: day})
			have[day] = true
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	// fill the spaces between the anchor days
	anchors := make([]*Day, len(days))
	copy(anchors, days)
	for n, v := range anchors {
		cur := p.cfg.Today
		if n > 0 && anchors[n-1].Day != 0 {
			cur = anchors[n-1].Day
		}
		cur += randx.Item(p.rng, []int{1, 2, 3})
		for cur < v.Day-p.cfg.LeadDays {
			if !have[cur] {
				days = append(days, &Day{Day: cur})
				have[cur] = true
			}
			cur += randx.Item(p.rng, nextDayRolls)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	// only fill the calendar, to keep lower scored candidates out
	count := len(days) * 4
	for count > 0 && len(pool) > 0 {
		m := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		if slots[m.Name] == 0 {
			continue
		}
		// any day before the due date works for the initial solution
		var valid []*Day
		for _, d := range days {
			if d.Day <= m.Days {
				valid = append(valid, d)
			}
		}
		if len(valid) == 0 {
			continue
		}
		d := randx.Item(p.rng, valid)
		d.Matches = append(d.Matches, m)
		slots[m.Name]--
		count--
	}
	return days
}

// transition moves one candidate from a random day to another random day
// without violating its due date lead time. There can be pathological states
// with no legal move; after 100 attempts the state is left unchanged and the
// next annealing step tries again.
func (p *Planner) transition(days []*Day) {
	for attempts := 0; attempts < 100; attempts++ {
		d1 := randx.Item(p.rng, days)
		d2 := randx.Item(p.rng, days)
		for i, m := range d2.Matches {
			if m.Days-p.cfg.LeadDays > d1.Day {
				d2.Matches = append(d2.Matches[:i], d2.Matches[i+1:]...)
				d1.Matches = append(d1.Matches, m)
				return
			}
		}
	}
}

func clone(days []*Day) []*Day {
	out := make([]*Day, len(days))
	for i, d := range days {
		matches := make([]*Candidate, len(d.Matches))
		copy(matches, d.Matches)
		out[i] = &Day{Day: d.Day, Matches: matches}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
