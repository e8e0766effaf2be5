package matcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankdev0428/bap/internal/award"
	"github.com/frankdev0428/bap/internal/config"
	"github.com/frankdev0428/bap/internal/database"
	"github.com/frankdev0428/bap/internal/policy"
	"github.com/frankdev0428/bap/internal/randx"
)

func newTestMatcher(t *testing.T) (*Matcher, *database.DB) {
	return newTestMatcherCfg(t, config.Default())
}

func newTestMatcherCfg(t *testing.T, cfg *config.Config) (*Matcher, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, cfg, log, randx.NewSeeded(1)), db
}

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(i int) *int              { return &i }
func strPtr(s string) *string        { return &s }

func seedSubscription(t *testing.T, db *database.DB, features ...string) (*database.Subscription, *database.Book) {
	t.Helper()
	ctx := context.Background()

	author := &database.Author{Name: "Test Author", Born: 1970}
	require.NoError(t, db.CreateAuthor(ctx, author))

	book := &database.Book{
		AuthorID:  author.ID,
		Title:     "Test Book",
		Keywords:  []string{"adventure"},
		WorkTypes: []string{"Novel"},
		Formats:   []string{"Paperback", "Kindle eBook"},
		PubType:   strPtr("Self-Published"),
		PubDate:   timePtr(time.Now().AddDate(-1, 0, 0)),
		Fictional: true,
		PageCount: intPtr(300),
		ISBN:      strPtr("978-0000000000"),
	}
	require.NoError(t, db.CreateBook(ctx, book))

	if len(features) == 0 {
		features = []string{policy.FeatureMatch, policy.FeatureTarget}
	}
	product := &database.Product{Name: "test plan", Features: features}
	require.NoError(t, db.CreateProduct(ctx, product))

	sub := &database.Subscription{
		BookID:    book.ID,
		ProductID: product.ID,
		Enabled:   true,
		Renewed:   time.Now().AddDate(0, -1, 0),
	}
	require.NoError(t, db.CreateSubscription(ctx, sub))
	return sub, book
}

func seedAward(t *testing.T, db *database.DB, name string, mut func(*database.Award)) *database.Award {
	t.Helper()
	a := &database.Award{
		Name:          name,
		Category:      "Fiction : Adventure",
		SponsorID:     "sponsor-" + name,
		Website:       "https://example.com",
		Fee:           50,
		AllowsDigital: true,
		CyclesPerYear: 1,
		DueDate:       timePtr(time.Now().AddDate(0, 0, 30)),
	}
	if mut != nil {
		mut(a)
	}
	require.NoError(t, db.CreateAward(context.Background(), a))
	return a
}

func seedAwards(t *testing.T, db *database.DB, n int, mut func(*database.Award)) {
	t.Helper()
	for i := 0; i < n; i++ {
		seedAward(t, db, fmt.Sprintf("AWARD %03d", i), mut)
	}
}

func TestFirstCyclePrimesMatches(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db, policy.FeatureMatch)
	seedAwards(t, db, 12, nil)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)

	assert.Equal(t, policy.ReasonFirstMatch, res.MatchReason)
	assert.Len(t, res.Created, 6)

	seen := map[string]bool{}
	for _, match := range res.Created {
		assert.False(t, seen[match.AwardID], "award targeted twice in one cycle")
		seen[match.AwardID] = true
		assert.Equal(t, sub.ID, match.SubscriptionID)
		assert.Greater(t, match.Score, 0)
		assert.NotNil(t, match.Scores)
	}

	persisted, err := db.ListMatches(ctx, sub.ID, 0)
	require.NoError(t, err)
	assert.Len(t, persisted, 6)
}

func TestSecondCycleWaitsForGap(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db, policy.FeatureMatch)
	seedAwards(t, db, 12, nil)

	_, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.MatchReason)
	assert.Empty(t, res.Created)
	assert.Nil(t, res.Target)
}

func TestMatchCountDeepPool(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db, policy.FeatureMatch)
	seedAwards(t, db, 135, nil)

	_, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{Match: policy.MatchForce})
	require.NoError(t, err)
	assert.Equal(t, policy.ReasonForced, res.MatchReason)

	// 135 scored awards minus the 6 already matched leaves a pool over 125,
	// which always trickles exactly two
	assert.Len(t, res.Created, 2)
}

func TestMatchCountShallowPool(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db, policy.FeatureMatch)
	seedAwards(t, db, 12, func(a *database.Award) {
		a.Static = award.StaticScores{Bonus: 150}
	})

	_, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{Match: policy.MatchForce})
	require.NoError(t, err)

	// high scores do not speed the trickle; a pool of 6 remaining awards
	// yields at most one match per cycle
	assert.LessOrEqual(t, len(res.Created), 1)
}

func TestFirstTarget(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db)
	seedAwards(t, db, 12, nil)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)

	assert.Equal(t, policy.ReasonFirstTarget, res.TargetReason)
	require.NotNil(t, res.Target)
	assert.Equal(t, reasonRenewal, res.Target.Reason)
	require.NotNil(t, res.Target.Targeting)
	assert.Equal(t, database.TargetingCandidate, *res.Target.Targeting)
	assert.True(t, res.Target.Managed)
	assert.NotNil(t, res.Target.Targeted)
	assert.Nil(t, res.Target.SubmitBy, "no submit feature, no submit-by runway")

	latest, err := db.LatestRenewalTarget(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, res.Target.ID, latest.ID)
}

func TestTargetSubmitRunway(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db, policy.FeatureMatch, policy.FeatureTarget, policy.FeatureSubmit)
	seedAwards(t, db, 6, nil)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)

	require.NotNil(t, res.Target)
	require.NotNil(t, res.Target.SubmitBy)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 9), *res.Target.SubmitBy, time.Hour)
}

func TestOneTargetPerRenewal(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db)
	seedAwards(t, db, 12, nil)

	first, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)
	require.NotNil(t, first.Target)

	// still inside the same renewal period
	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Target)

	// a renewal reopens targeting; the webhook path skips the settle window
	require.NoError(t, db.UpdateRenewed(ctx, sub.ID, time.Now()))
	res, err = m.ProcessSubscription(ctx, sub.ID, Options{Target: policy.TargetWebhook})
	require.NoError(t, err)
	assert.Equal(t, policy.ReasonWebhook, res.TargetReason)
	require.NotNil(t, res.Target)
	assert.NotEqual(t, first.Target.ID, res.Target.ID)
}

func TestNoTargetableAwards(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db)
	seedAwards(t, db, 6, func(a *database.Award) {
		a.Fee = 150
	})

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Created, "expensive awards still match")
	assert.Nil(t, res.Target, "fees above $100 are never targeted")
}

func TestTargetLeadDaysConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Targeting.LeadDays = 60
	m, db := newTestMatcherCfg(t, cfg)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db)
	seedAwards(t, db, 6, nil)

	// awards due in 30 days sit inside the widened lead window
	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Created, "matching ignores the targeting lead window")
	assert.Nil(t, res.Target)
}

func TestTargetPrefersBestOpenMatch(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, book := seedSubscription(t, db)
	seedAwards(t, db, 4, nil)
	best := seedAward(t, db, "SURE THING", nil)

	existing := &database.Match{
		SubscriptionID: sub.ID,
		BookID:         book.ID,
		AwardID:        best.ID,
		Score:          999,
		Reason:         reasonMatch,
	}
	require.NoError(t, db.CreateMatch(ctx, existing))

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{Target: policy.TargetForce})
	require.NoError(t, err)

	require.NotNil(t, res.Target)
	assert.Equal(t, existing.ID, res.Target.ID, "the open match with the top score wins")
	require.NotNil(t, res.Target.Targeting)
	assert.Equal(t, database.TargetingCandidate, *res.Target.Targeting)
}

func TestPromoteCandidateTargets(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()
	now := time.Now()

	sub, book := seedSubscription(t, db)
	a := seedAward(t, db, "AWARD", nil)

	candidate := database.TargetingCandidate
	newTarget := func(targetedDaysAgo int, submitBy *time.Time) *database.Match {
		match := &database.Match{
			SubscriptionID: sub.ID,
			BookID:         book.ID,
			AwardID:        a.ID,
			Reason:         reasonRenewal,
			Targeting:      &candidate,
			Managed:        true,
			Targeted:       timePtr(now.AddDate(0, 0, -targetedDaysAgo)),
			SubmitBy:       submitBy,
		}
		require.NoError(t, db.CreateMatch(ctx, match))
		return match
	}

	aged := newTarget(6, nil)
	agedSubmit := newTarget(6, timePtr(now.AddDate(0, 0, 3)))
	fresh := newTarget(2, nil)

	n, err := m.PromoteCandidateTargets(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	matches, err := db.ListMatches(ctx, sub.ID, 0)
	require.NoError(t, err)
	byID := map[string]*database.Match{}
	for _, match := range matches {
		byID[match.ID] = match
	}

	require.NotNil(t, byID[aged.ID].Targeting)
	assert.Equal(t, database.TargetingComplete, *byID[aged.ID].Targeting)
	assert.Equal(t, award.StatusTargeted, byID[aged.ID].Status)

	require.NotNil(t, byID[agedSubmit.ID].Targeting)
	assert.Equal(t, database.TargetingPresented, *byID[agedSubmit.ID].Targeting)
	assert.WithinDuration(t, now.AddDate(0, 0, 4), *byID[agedSubmit.ID].SubmitBy, time.Hour)

	require.NotNil(t, byID[fresh.ID].Targeting)
	assert.Equal(t, database.TargetingCandidate, *byID[fresh.ID].Targeting)
}

func TestLandscape(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, book := seedSubscription(t, db)
	seedAward(t, db, "LOW", func(a *database.Award) {
		a.Static = award.StaticScores{Bonus: 10}
	})
	seedAward(t, db, "HIGH", func(a *database.Award) {
		a.Static = award.StaticScores{Bonus: 50}
	})
	seedAward(t, db, "MID", func(a *database.Award) {
		a.Static = award.StaticScores{Bonus: 30}
	})

	out, err := m.Landscape(ctx, book.ID, time.Now())
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "HIGH", out[0].Name)
	assert.Equal(t, "MID", out[1].Name)
	assert.Equal(t, "LOW", out[2].Name)

	// a win in a prior cycle hides later cycles of the same award, exactly
	// as the match sweep would
	wonCycle := seedAward(t, db, "TAKEN", nil)
	seedAward(t, db, "TAKEN", func(a *database.Award) {
		a.DueDate = timePtr(time.Now().AddDate(0, 0, 45))
	})
	require.NoError(t, db.CreateMatch(ctx, &database.Match{
		SubscriptionID: sub.ID,
		BookID:         book.ID,
		AwardID:        wonCycle.ID,
		Reason:         reasonMatch,
		Status:         award.StatusWon,
	}))

	out, err = m.Landscape(ctx, book.ID, time.Now())
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, c := range out {
		assert.NotEqual(t, "TAKEN", c.Name)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db)
	seedAwards(t, db, 8, nil)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Created)
	assert.NotNil(t, res.Target)

	persisted, err := db.ListMatches(ctx, sub.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestDisabledSubscriptionSkipped(t *testing.T) {
	m, db := newTestMatcher(t)
	ctx := context.Background()

	sub, _ := seedSubscription(t, db)
	_, err := db.ExecContext(ctx, "UPDATE subscriptions SET enabled = 0 WHERE id = ?", sub.ID)
	require.NoError(t, err)

	res, err := m.ProcessSubscription(ctx, sub.ID, Options{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}
