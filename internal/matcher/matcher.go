// Package matcher runs the match and target cycles: score the open award
// landscape for a book, schedule the best candidates across the calendar,
// persist a few as matches, and earmark one targetable award per renewal.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/frankdev0428/bap/internal/award"
	"github.com/frankdev0428/bap/internal/config"
	"github.com/frankdev0428/bap/internal/database"
	"github.com/frankdev0428/bap/internal/policy"
	"github.com/frankdev0428/bap/internal/randx"
	"github.com/frankdev0428/bap/internal/schedule"
)

const (
	// days a candidate target sits in review before it is presented
	reviewDays = 5
	// submit-by runway granted when a target is presented
	presentDays = 4
	// score written to a match whose award no longer qualifies
	disqualifiedScore = -999

	reasonMatch       = "match"
	reasonRenewal     = "renewal"
	reasonExtraTarget = "extra-target"
)

// Options override the cadence policy for one run.
type Options struct {
	Match  policy.MatchMode
	Target policy.TargetMode

	// DayOffset shifts the planner's "today", for backfilling a missed sweep.
	DayOffset int
	// DryRun computes decisions and rows without writing any of them.
	DryRun bool
}

// Result reports what one subscription's cycle did.
type Result struct {
	SubscriptionID string            `json:"subscription_id"`
	MatchReason    policy.Reason     `json:"match_reason,omitempty"`
	ExtraReason    policy.Reason     `json:"extra_reason,omitempty"`
	TargetReason   policy.Reason     `json:"target_reason,omitempty"`
	Created        []*database.Match `json:"created,omitempty"`
	Target         *database.Match   `json:"target,omitempty"`
	Skipped        bool              `json:"skipped,omitempty"`
}

// Matcher wires the scoring engine, the policy, and the planner to the
// database.
type Matcher struct {
	db  *database.DB
	cfg *config.Config
	pol *policy.Policy
	log *slog.Logger
	rng randx.Source

	mu      sync.Mutex
	running map[string]bool
}

// New returns a matcher. A nil source means a non-deterministic one.
func New(db *database.DB, cfg *config.Config, log *slog.Logger, rng randx.Source) *Matcher {
	if rng == nil {
		rng = randx.New()
	}
	return &Matcher{
		db:      db,
		cfg:     cfg,
		pol:     policy.New(cfg.Targeting.Settle(), rng),
		log:     log,
		rng:     rng,
		running: map[string]bool{},
	}
}

// tryLock claims a subscription for one cycle. Webhook and periodic runs can
// overlap; only one of them gets to work the subscription.
func (m *Matcher) tryLock(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[id] {
		return false
	}
	m.running[id] = true
	return true
}

func (m *Matcher) unlock(id string) {
	m.mu.Lock()
	delete(m.running, id)
	m.mu.Unlock()
}

// ProcessAll runs a cycle for every enabled subscription, then promotes any
// candidate targets whose review window ended. Per-subscription failures are
// logged, not fatal.
func (m *Matcher) ProcessAll(ctx context.Context, opts Options) ([]*Result, error) {
	subs, err := m.db.ListEnabledSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	var results []*Result
	for _, sub := range subs {
		res, err := m.ProcessSubscription(ctx, sub.ID, opts)
		if err != nil {
			m.log.Error("subscription cycle failed", "subscription", sub.ID, "error", err)
			continue
		}
		if res != nil {
			results = append(results, res)
		}
	}

	if !opts.DryRun {
		if _, err := m.PromoteCandidateTargets(ctx, time.Now()); err != nil {
			m.log.Error("candidate promotion failed", "error", err)
		}
	}
	return results, nil
}

// ProcessSubscription runs one match/target cycle for a subscription.
func (m *Matcher) ProcessSubscription(ctx context.Context, id string, opts Options) (*Result, error) {
	if !m.tryLock(id) {
		m.log.Info("subscription already processing", "subscription", id)
		return &Result{SubscriptionID: id, Skipped: true}, nil
	}
	defer m.unlock(id)

	sub, err := m.db.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("subscription not found: %s", id)
	}
	if !sub.Enabled {
		m.log.Info("subscription disabled", "subscription", id)
		return &Result{SubscriptionID: id, Skipped: true}, nil
	}

	now := time.Now()
	res := &Result{SubscriptionID: id}

	latest, err := m.db.LatestMatch(ctx, id, false)
	if err != nil {
		return nil, err
	}
	latestExtra, err := m.db.LatestMatch(ctx, id, true)
	if err != nil {
		return nil, err
	}
	latestTarget, err := m.db.LatestRenewalTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	psub := sub.Policy()
	matchReason, doMatch := m.pol.ShouldMatch(psub, createdAt(latest), opts.Match, now)
	extraReason, doExtra := m.pol.ShouldMatch(psub, createdAt(latestExtra), opts.Match, now)
	targetReason, doTarget := m.pol.ShouldTarget(psub, targetedAt(latestTarget), opts.Target, now)
	res.MatchReason, res.ExtraReason, res.TargetReason = matchReason, extraReason, targetReason

	if !doMatch && !doExtra && !doTarget {
		m.log.Debug("nothing to do", "subscription", id)
		return res, nil
	}

	book, err := m.db.GetBook(ctx, sub.BookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("book not found: %s", sub.BookID)
	}
	author, err := m.db.GetAuthor(ctx, book.AuthorID)
	if err != nil {
		return nil, err
	}

	priorRows, err := m.db.PriorMatches(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	priors := toPriors(priorRows)

	candidates, awards, err := m.newCandidates(ctx, sub, book, author, priors, now)
	if err != nil {
		return nil, err
	}

	var bookCands, extraCands []*schedule.Candidate
	for _, c := range candidates {
		if c.NonContent {
			extraCands = append(extraCands, c)
		} else {
			bookCands = append(bookCands, c)
		}
	}

	planner := schedule.New(schedule.Config{
		Today:    opts.DayOffset,
		LeadDays: m.cfg.Matching.LeadDays,
		Horizon:  m.cfg.Matching.HorizonDays,
		Rand:     m.rng,
	})
	bookPool, extraPool := len(bookCands), len(extraCands)
	planned := planner.Plan(m.trim(bookCands))
	plannedExtra := planner.Plan(m.trim(extraCands))

	if doMatch {
		created, err := m.createMatches(ctx, sub, planned, bookPool, latest != nil, opts.DryRun)
		if err != nil {
			return nil, err
		}
		res.Created = append(res.Created, created...)
	}
	if doExtra {
		created, err := m.createMatches(ctx, sub, plannedExtra, extraPool, latestExtra != nil, opts.DryRun)
		if err != nil {
			return nil, err
		}
		res.Created = append(res.Created, created...)
	}
	if doTarget {
		target, err := m.processTarget(ctx, sub, book, author, planned, awards, latestTarget, opts, now)
		if err != nil {
			return nil, err
		}
		res.Target = target
	}

	m.log.Info("cycle complete",
		"subscription", id,
		"candidates", len(candidates),
		"created", len(res.Created),
		"targeted", res.Target != nil)
	return res, nil
}

// trim keeps only the highest scored candidates and sorts them lowest score
// first, the order the planner wants.
func (m *Matcher) trim(cands []*schedule.Candidate) []*schedule.Candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score < cands[j].Score })
	if max := m.cfg.Matching.MaxCandidates; max > 0 && len(cands) > max {
		cands = cands[len(cands)-max:]
	}
	return cands
}

// newCandidates scores the book against every open award that survives the
// static prefilter and the history layer. Awards with no due date are planned
// as if due in 30 days. Returns the award rows keyed by ID so later stages
// can re-check criteria without another query.
func (m *Matcher) newCandidates(ctx context.Context, sub *database.Subscription, book *database.Book, author *database.Author, priors []award.PriorMatch, now time.Time) ([]*schedule.Candidate, map[string]*database.Award, error) {
	rows, err := m.db.CandidateAwards(ctx, book, author, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load candidate awards: %w", err)
	}

	rec := book.Record(author)
	byID := map[string]*database.Award{}
	var cands []*schedule.Candidate
	for _, a := range rows {
		crit := a.Criteria()
		scores := award.FilteredScore(crit, rec, priors, now, false)
		if scores == nil {
			continue
		}
		due := now.AddDate(0, 0, 30)
		if a.DueDate != nil {
			due = *a.DueDate
		}
		byID[a.ID] = a
		cands = append(cands, &schedule.Candidate{
			AwardID:        a.ID,
			SubscriptionID: sub.ID,
			BookID:         book.ID,
			Name:           a.Name,
			Category:       a.Category,
			Score:          scores.Total(),
			Scores:         scores,
			Fee:            crit.EffectiveFee(),
			AllowsDigital:  a.AllowsDigital,
			NonContent:     crit.NonContent(),
			DueDate:        due,
			Days:           int(due.Sub(now).Hours() / 24),
		})
	}
	return cands, byID, nil
}

// matchWindow is how deep into the schedule match creation looks. The first
// cycle gets a wide window to prime the subscription; later cycles draw from
// the front of the calendar only.
func matchWindow(hadPrior bool) int {
	if hadPrior {
		return 4
	}
	return 10
}

// matchCount picks how many matches to create this cycle. The first cycle
// primes a batch; later cycles trickle, more generously when the scored pool
// runs deep.
func (m *Matcher) matchCount(hadPrior bool, poolSize int) int {
	if !hadPrior {
		return 6
	}
	switch {
	case poolSize > 125:
		return 2
	case poolSize > 100:
		return randx.Item(m.rng, []int{1, 2, 2})
	case poolSize > 50:
		return randx.Item(m.rng, []int{1, 1, 2})
	case poolSize > 25:
		return randx.Item(m.rng, []int{1, 1, 1, 2})
	case poolSize > 15:
		return randx.Item(m.rng, []int{0, 1, 1, 1})
	default:
		return randx.Item(m.rng, []int{0, 0, 1, 1})
	}
}

// createMatches persists the best of the planned schedule as new matches,
// highest score first, at most one per award family per cycle. poolSize is
// the scored candidate count before trimming; it sets the trickle rate.
func (m *Matcher) createMatches(ctx context.Context, sub *database.Subscription, planned []*schedule.Candidate, poolSize int, hadPrior, dryRun bool) ([]*database.Match, error) {
	if len(planned) == 0 {
		return nil, nil
	}

	window := matchWindow(hadPrior)
	if window > len(planned) {
		window = len(planned)
	}
	best := make([]*schedule.Candidate, window)
	copy(best, planned[:window])
	sort.SliceStable(best, func(i, j int) bool { return best[i].Score < best[j].Score })

	count := m.matchCount(hadPrior, poolSize)

	var created []*database.Match
	seen := map[string]bool{}
	for i := len(best) - 1; i >= 0 && len(created) < count; i-- {
		c := best[i]
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true

		match := &database.Match{
			SubscriptionID: sub.ID,
			BookID:         c.BookID,
			AwardID:        c.AwardID,
			Score:          c.Score,
			Scores:         c.Scores,
			Reason:         reasonMatch,
		}
		if !dryRun {
			if err := m.db.CreateMatch(ctx, match); err != nil {
				return created, fmt.Errorf("failed to create match: %w", err)
			}
			// targeting later in the cycle must update this row, not add another
			c.MatchID = match.ID
		}
		m.log.Debug("match created", "subscription", sub.ID, "award", c.Name, "score", c.Score, "dry_run", dryRun)
		created = append(created, match)
	}
	return created, nil
}

// processTarget earmarks the best targetable award for this renewal. The pool
// is the planned candidates plus the subscription's still-open matches, one
// entry per award; the highest score wins. The new target starts in the
// candidate review window; cousins of its family are rescored afterwards.
func (m *Matcher) processTarget(ctx context.Context, sub *database.Subscription, book *database.Book, author *database.Author, planned []*schedule.Candidate, awards map[string]*database.Award, latestTarget *database.Match, opts Options, now time.Time) (*database.Match, error) {
	pool := map[string]*schedule.Candidate{}
	for _, c := range planned {
		a := awards[c.AwardID]
		if a == nil || !award.Targetable(a.Criteria(), now, m.cfg.Targeting.LeadDays) {
			continue
		}
		if _, ok := pool[c.AwardID]; !ok {
			pool[c.AwardID] = c
		}
	}

	open, err := m.db.OpenMatches(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	for _, row := range open {
		if _, ok := pool[row.AwardID]; ok {
			continue
		}
		a := awards[row.AwardID]
		if a == nil {
			a, err = m.db.GetAward(ctx, row.AwardID)
			if err != nil {
				return nil, err
			}
			if a == nil {
				continue
			}
		}
		if !award.Targetable(a.Criteria(), now, m.cfg.Targeting.LeadDays) {
			continue
		}
		pool[row.AwardID] = &schedule.Candidate{
			AwardID: row.AwardID,
			MatchID: row.ID,
			BookID:  row.BookID,
			Name:    row.AwardName,
			Score:   row.Score,
			Scores:  row.Scores,
		}
	}

	if len(pool) == 0 {
		m.log.Info("no targetable candidates", "subscription", sub.ID)
		return nil, nil
	}

	var best *schedule.Candidate
	for _, c := range pool {
		if best == nil || c.Score > best.Score ||
			(c.Score == best.Score && c.AwardID < best.AwardID) {
			best = c
		}
	}

	reason := reasonRenewal
	if latestTarget != nil && latestTarget.Targeted != nil && !latestTarget.Targeted.Before(sub.Renewed) {
		// a forced second target inside the same renewal period
		reason = reasonExtraTarget
	}
	doSubmission := opts.Target == policy.TargetForceSubmit || sub.Policy().HasFeature(policy.FeatureSubmit)

	targeting := database.TargetingCandidate
	var match *database.Match
	if best.MatchID != "" {
		if match, err = m.db.GetMatch(ctx, best.MatchID); err != nil {
			return nil, err
		}
	}
	if match == nil {
		match = &database.Match{
			SubscriptionID: sub.ID,
			BookID:         book.ID,
			AwardID:        best.AwardID,
			Score:          best.Score,
			Scores:         best.Scores,
		}
	}
	match.Reason = reason
	match.Targeting = &targeting
	match.Managed = true
	match.Targeted = &now
	if doSubmission {
		submitBy := now.AddDate(0, 0, m.cfg.Targeting.SubmitByDays)
		match.SubmitBy = &submitBy
	}

	if opts.DryRun {
		m.log.Info("target selected",
			"subscription", sub.ID,
			"award", best.Name,
			"score", best.Score,
			"dry_run", true)
		return match, nil
	}

	if match.ID != "" {
		err = m.db.UpdateMatch(ctx, match)
	} else {
		err = m.db.CreateMatch(ctx, match)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist target: %w", err)
	}
	m.log.Info("target created",
		"subscription", sub.ID,
		"award", best.Name,
		"score", best.Score,
		"reason", reason)

	a := awards[best.AwardID]
	if a == nil {
		if a, err = m.db.GetAward(ctx, best.AwardID); err != nil {
			return nil, err
		}
	}
	if a != nil {
		if err := m.rescoreCousins(ctx, book, author, a.Name, a.SponsorID, match.ID, now); err != nil {
			return nil, err
		}
	}
	return match, nil
}

// rescoreCousins refreshes the scores of a book's other matches in one award
// family. A new target changes what the history penalties see, so siblings
// that looked good an hour ago may now be disqualified.
func (m *Matcher) rescoreCousins(ctx context.Context, book *database.Book, author *database.Author, name, sponsorID, excludeID string, now time.Time) error {
	cousins, err := m.db.CousinMatches(ctx, book.ID, name, sponsorID, excludeID)
	if err != nil {
		return err
	}
	if len(cousins) == 0 {
		return nil
	}

	priorRows, err := m.db.PriorMatches(ctx, book.ID)
	if err != nil {
		return err
	}
	rec := book.Record(author)

	for _, c := range cousins {
		if c.Targeting != nil || c.Status == award.StatusSubmitted || c.Status == award.StatusWon {
			continue
		}
		a, err := m.db.GetAward(ctx, c.AwardID)
		if err != nil {
			return err
		}
		if a == nil {
			continue
		}

		var others []award.PriorMatch
		for _, row := range priorRows {
			if row.ID != c.ID {
				others = append(others, row.Prior())
			}
		}
		scores := award.FilteredScore(a.Criteria(), rec, others, now, false)
		if scores == nil {
			c.Score = disqualifiedScore
			c.Scores = nil
		} else {
			c.Score = scores.Total()
			c.Scores = scores
		}
		if err := m.db.UpdateMatch(ctx, c); err != nil {
			return err
		}
		m.log.Debug("cousin rescored", "match", c.ID, "score", c.Score)
	}
	return nil
}

// PromoteCandidateTargets moves targets out of the candidate review window.
// Targets headed for submission are presented with a fresh submit-by runway;
// the rest complete directly. Each promotion leaves an audit row.
func (m *Matcher) PromoteCandidateTargets(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.db.CandidateTargets(ctx, now.AddDate(0, 0, -reviewDays))
	if err != nil {
		return 0, err
	}

	for _, t := range rows {
		var state string
		if t.SubmitBy != nil {
			targeting := database.TargetingPresented
			t.Targeting = &targeting
			submitBy := now.AddDate(0, 0, presentDays)
			t.SubmitBy = &submitBy
			state = "presented"
		} else {
			targeting := database.TargetingComplete
			t.Targeting = &targeting
			t.Status = award.StatusTargeted
			state = "targeted"
		}
		if err := m.db.UpdateMatch(ctx, t); err != nil {
			return 0, err
		}
		if err := m.db.CreateMatchState(ctx, t.ID, state); err != nil {
			return 0, err
		}
		m.log.Info("target promoted", "match", t.ID, "state", state)
	}
	return len(rows), nil
}

// Landscape scores every open award for a book, best first, applying the
// same history gates the match cycle does. Won or rate-limited families are
// hidden just as they would be from matching.
func (m *Matcher) Landscape(ctx context.Context, bookID string, now time.Time) ([]*schedule.Candidate, error) {
	book, err := m.db.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("book not found: %s", bookID)
	}
	author, err := m.db.GetAuthor(ctx, book.AuthorID)
	if err != nil {
		return nil, err
	}

	priorRows, err := m.db.PriorMatches(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	priors := toPriors(priorRows)

	rows, err := m.db.CandidateAwards(ctx, book, author, now)
	if err != nil {
		return nil, err
	}

	rec := book.Record(author)
	var out []*schedule.Candidate
	for _, a := range rows {
		crit := a.Criteria()
		scores := award.FilteredScore(crit, rec, priors, now, false)
		if scores == nil {
			continue
		}
		due := now.AddDate(0, 0, 30)
		if a.DueDate != nil {
			due = *a.DueDate
		}
		out = append(out, &schedule.Candidate{
			AwardID:       a.ID,
			BookID:        book.ID,
			Name:          a.Name,
			Category:      a.Category,
			Score:         scores.Total(),
			Scores:        scores,
			Fee:           crit.EffectiveFee(),
			AllowsDigital: a.AllowsDigital,
			NonContent:    crit.NonContent(),
			DueDate:       due,
			Days:          int(due.Sub(now).Hours() / 24),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func toPriors(rows []*database.Match) []award.PriorMatch {
	out := make([]award.PriorMatch, len(rows))
	for i, row := range rows {
		out[i] = row.Prior()
	}
	return out
}

func createdAt(m *database.Match) *time.Time {
	if m == nil {
		return nil
	}
	return &m.CreatedAt
}

func targetedAt(m *database.Match) *time.Time {
	if m == nil {
		return nil
	}
	if m.Targeted != nil {
		return m.Targeted
	}
	return &m.CreatedAt
}
