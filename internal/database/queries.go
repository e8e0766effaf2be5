package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frankdev0428/bap/internal/award"
)

const awardColumns = `
	id, name, category, sponsor_id, website, fee, override_fee, currency,
	allows_digital, is_scam, tombstoned, cycles_per_year,
	open_date, due_date, results_date,
	non_content_types, publication_types, fiction_filter, formats_or, disqualifiers,
	keywords_or1, keywords_or2, keywords_and, keywords_not,
	work_types_or, work_types_and, work_types_not,
	book_setting, author_birthplace, author_lineage, author_citizenship, author_residency,
	pages_min, pages_max, words_min, words_max,
	publish_start, publish_end, copyright_start, copyright_end,
	author_born_start, author_born_end, age_min, age_max,
	static_scores, created_at, updated_at`

func marshalList(l []string) (sql.NullString, error) {
	return marshalJSON(l, l == nil)
}

func marshalRegions(r []award.Region) (sql.NullString, error) {
	return marshalJSON(r, r == nil)
}

// CreateAward inserts a new award cycle
func (db *DB) CreateAward(ctx context.Context, a *Award) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()

	lists := map[string][]string{}
	encoded := map[string]sql.NullString{}
	lists["non_content_types"] = a.NonContentTypes
	lists["publication_types"] = a.PublicationTypes
	lists["fiction_filter"] = a.FictionFilter
	lists["formats_or"] = a.FormatsOr
	lists["disqualifiers"] = a.Disqualifiers
	lists["keywords_or1"] = a.KeywordsOr1
	lists["keywords_or2"] = a.KeywordsOr2
	lists["keywords_and"] = a.KeywordsAnd
	lists["keywords_not"] = a.KeywordsNot
	lists["work_types_or"] = a.WorkTypesOr
	lists["work_types_and"] = a.WorkTypesAnd
	lists["work_types_not"] = a.WorkTypesNot
	lists["book_setting"] = a.BookSetting
	lists["author_birthplace"] = a.AuthorBirthplace
	lists["author_lineage"] = a.AuthorLineage
	lists["author_citizenship"] = a.AuthorCitizenship
	lists["author_residency"] = a.AuthorResidency
	for col, l := range lists {
		ns, err := marshalList(l)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", col, err)
		}
		encoded[col] = ns
	}
	static, err := marshalJSON(a.Static, false)
	if err != nil {
		return fmt.Errorf("failed to encode static_scores: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO awards (
			id, name, category, sponsor_id, website, fee, override_fee, currency,
			allows_digital, is_scam, tombstoned, cycles_per_year,
			open_date, due_date, results_date,
			non_content_types, publication_types, fiction_filter, formats_or, disqualifiers,
			keywords_or1, keywords_or2, keywords_and, keywords_not,
			work_types_or, work_types_and, work_types_not,
			book_setting, author_birthplace, author_lineage, author_citizenship, author_residency,
			pages_min, pages_max, words_min, words_max,
			publish_start, publish_end, copyright_start, copyright_end,
			author_born_start, author_born_end, age_min, age_max,
			static_scores, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		          ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Name, a.Category, a.SponsorID, a.Website, a.Fee, NullFloat64(a.OverrideFee), a.Currency,
		a.AllowsDigital, a.IsScam, NullTime(a.Tombstoned), a.CyclesPerYear,
		NullTime(a.OpenDate), NullTime(a.DueDate), NullTime(a.ResultsDate),
		encoded["non_content_types"], encoded["publication_types"], encoded["fiction_filter"],
		encoded["formats_or"], encoded["disqualifiers"],
		encoded["keywords_or1"], encoded["keywords_or2"], encoded["keywords_and"], encoded["keywords_not"],
		encoded["work_types_or"], encoded["work_types_and"], encoded["work_types_not"],
		encoded["book_setting"], encoded["author_birthplace"], encoded["author_lineage"],
		encoded["author_citizenship"], encoded["author_residency"],
		NullInt(a.PagesMin), NullInt(a.PagesMax), NullInt(a.WordsMin), NullInt(a.WordsMax),
		NullTime(a.PublishStart), NullTime(a.PublishEnd), NullInt(a.CopyrightStart), NullInt(a.CopyrightEnd),
		NullInt(a.AuthorBornStart), NullInt(a.AuthorBornEnd), NullInt(a.AgeMin), NullInt(a.AgeMax),
		static, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAward(s scanner) (*Award, error) {
	a := &Award{}
	var (
		overrideFee sql.NullFloat64

		tombstoned, openDate, dueDate, resultsDate   sql.NullTime
		publishStart, publishEnd                     sql.NullTime
		nonContent, pubTypes, fiction, formats, disq sql.NullString
		or1, or2, kwAnd, kwNot, wtOr, wtAnd, wtNot   sql.NullString
		setting, birth, lineage, citizen, residency  sql.NullString
		static                                       sql.NullString

		pagesMin, pagesMax, wordsMin, wordsMax sql.NullInt64
		cStart, cEnd, bornStart, bornEnd       sql.NullInt64
		ageMin, ageMax                         sql.NullInt64
	)

	err := s.Scan(
		&a.ID, &a.Name, &a.Category, &a.SponsorID, &a.Website, &a.Fee, &overrideFee, &a.Currency,
		&a.AllowsDigital, &a.IsScam, &tombstoned, &a.CyclesPerYear,
		&openDate, &dueDate, &resultsDate,
		&nonContent, &pubTypes, &fiction, &formats, &disq,
		&or1, &or2, &kwAnd, &kwNot,
		&wtOr, &wtAnd, &wtNot,
		&setting, &birth, &lineage, &citizen, &residency,
		&pagesMin, &pagesMax, &wordsMin, &wordsMax,
		&publishStart, &publishEnd, &cStart, &cEnd,
		&bornStart, &bornEnd, &ageMin, &ageMax,
		&static, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.OverrideFee = Float64Ptr(overrideFee)
	a.Tombstoned = TimePtr(tombstoned)
	a.OpenDate = TimePtr(openDate)
	a.DueDate = TimePtr(dueDate)
	a.ResultsDate = TimePtr(resultsDate)
	a.PagesMin = IntPtr(pagesMin)
	a.PagesMax = IntPtr(pagesMax)
	a.WordsMin = IntPtr(wordsMin)
	a.WordsMax = IntPtr(wordsMax)
	a.PublishStart = TimePtr(publishStart)
	a.PublishEnd = TimePtr(publishEnd)
	a.CopyrightStart = IntPtr(cStart)
	a.CopyrightEnd = IntPtr(cEnd)
	a.AuthorBornStart = IntPtr(bornStart)
	a.AuthorBornEnd = IntPtr(bornEnd)
	a.AgeMin = IntPtr(ageMin)
	a.AgeMax = IntPtr(ageMax)

	for _, col := range []struct {
		src sql.NullString
		dst *[]string
	}{
		{nonContent, &a.NonContentTypes},
		{pubTypes, &a.PublicationTypes},
		{fiction, &a.FictionFilter},
		{formats, &a.FormatsOr},
		{disq, &a.Disqualifiers},
		{or1, &a.KeywordsOr1},
		{or2, &a.KeywordsOr2},
		{kwAnd, &a.KeywordsAnd},
		{kwNot, &a.KeywordsNot},
		{wtOr, &a.WorkTypesOr},
		{wtAnd, &a.WorkTypesAnd},
		{wtNot, &a.WorkTypesNot},
		{setting, &a.BookSetting},
		{birth, &a.AuthorBirthplace},
		{lineage, &a.AuthorLineage},
		{citizen, &a.AuthorCitizenship},
		{residency, &a.AuthorResidency},
	} {
		if err := unmarshalJSON(col.src, col.dst); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(static, &a.Static); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAward retrieves an award by ID
func (db *DB) GetAward(ctx context.Context, id string) (*Award, error) {
	row := db.QueryRowContext(ctx, `SELECT `+awardColumns+` FROM awards WHERE id = ?`, id)
	a, err := scanAward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CandidateAwards returns the awards worth scoring for a book: open, not yet
// matched, inside the due-date window, and past every static predicate. The
// date, numeric, and subquery checks run in SQL; list predicates that sqlite
// can't express cheaply are applied here after the scan. The scoring engine
// receives this already-narrowed list.
func (db *DB) CandidateAwards(ctx context.Context, b *Book, auth *Author, now time.Time) ([]*Award, error) {
	var born sql.NullInt64
	var age sql.NullInt64
	if auth != nil && auth.Born > 0 {
		born = sql.NullInt64{Int64: int64(auth.Born), Valid: true}
		age = sql.NullInt64{Int64: int64(now.Year() - auth.Born), Valid: true}
	}
	var copyright sql.NullInt64
	if y := b.CopyrightYear(); y > 0 {
		copyright = sql.NullInt64{Int64: int64(y), Valid: true}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+awardColumns+`
		FROM awards a
		WHERE a.tombstoned IS NULL
		AND NOT a.is_scam
		AND a.id NOT IN (SELECT m.award_id FROM matches m WHERE m.book_id = ?)
		AND (a.open_date IS NULL OR a.open_date < ?)
		AND (a.due_date IS NULL OR (a.due_date > ? AND a.due_date < ?))
		AND (a.pages_min IS NULL OR ? >= 0.9 * a.pages_min)
		AND (a.pages_max IS NULL OR ? <= 1.1 * a.pages_max)
		AND (a.words_min IS NULL OR ? >= 0.8 * a.words_min)
		AND (a.words_max IS NULL OR ? <= 1.2 * a.words_max)
		AND (a.publish_start IS NULL OR ? >= a.publish_start)
		AND (a.publish_end IS NULL OR ? <= a.publish_end)
		AND (a.copyright_start IS NULL OR ? >= a.copyright_start)
		AND (a.copyright_end IS NULL OR ? <= a.copyright_end)
		AND (a.author_born_start IS NULL OR ? >= a.author_born_start)
		AND (a.author_born_end IS NULL OR ? <= a.author_born_end)
		AND (a.age_min IS NULL OR ? >= a.age_min)
		AND (a.age_max IS NULL OR ? <= a.age_max)
		ORDER BY a.due_date
	`,
		b.ID, now,
		now.AddDate(0, 0, 2), now.AddDate(0, 0, 60),
		NullInt(b.PageCount), NullInt(b.PageCount),
		NullInt(b.WordCount), NullInt(b.WordCount),
		NullTime(b.PubDate), NullTime(b.PubDate),
		copyright, copyright,
		born, born, age, age,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []*Award
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		if !admitAward(a, b, now) {
			continue
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}

// admitAward applies the list predicates of the static prefilter.
func admitAward(a *Award, b *Book, now time.Time) bool {
	published := b.PubDate != nil && b.PubDate.Before(now)

	// publication types: awards for unpublished work only accept books not
	// yet out; mixed lists accept either; published-only lists need the
	// book's publication type
	switch {
	case len(a.PublicationTypes) == 1 && a.PublicationTypes[0] == "Unpublished":
		if published {
			return false
		}
	case contains(a.PublicationTypes, "Unpublished"):
		if b.PubDate != nil && (b.PubType == nil || !contains(a.PublicationTypes, *b.PubType)) {
			return false
		}
	case a.PublicationTypes != nil:
		if !published || b.PubType == nil || !contains(a.PublicationTypes, *b.PubType) {
			return false
		}
	}

	if a.FictionFilter != nil {
		want := "Nonfiction"
		if b.Fictional {
			want = "Fiction"
		}
		if !contains(a.FictionFilter, want) {
			return false
		}
	}

	if b.NonEnglish && contains(a.Disqualifiers, "Non-English Book") {
		return false
	}
	if a.FormatsOr != nil && !intersects(b.Formats, a.FormatsOr) {
		return false
	}
	if a.Disqualifiers != nil && intersects(b.Formats, a.Disqualifiers) {
		return false
	}
	if a.WorkTypesNot != nil && intersects(b.WorkTypes, a.WorkTypesNot) {
		return false
	}
	if contains(a.Disqualifiers, "ISBN Required") && b.ISBN == nil && b.ASIN == nil {
		return false
	}
	return true
}

func contains(l []string, v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}

// CreateAuthor inserts a new author
func (db *DB) CreateAuthor(ctx context.Context, a *Author) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()

	regions, err := marshalRegions(a.Regions)
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}
	var born sql.NullInt64
	if a.Born > 0 {
		born = sql.NullInt64{Int64: int64(a.Born), Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO authors (id, name, born, regions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, born, regions, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetAuthor retrieves an author by ID
func (db *DB) GetAuthor(ctx context.Context, id string) (*Author, error) {
	a := &Author{}
	var born sql.NullInt64
	var regions sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT id, name, born, regions, created_at, updated_at
		FROM authors WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &born, &regions, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if born.Valid {
		a.Born = int(born.Int64)
	}
	if err := unmarshalJSON(regions, &a.Regions); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateBook inserts a new book
func (db *DB) CreateBook(ctx context.Context, b *Book) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = time.Now()

	keywords, err := marshalList(b.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	workTypes, err := marshalList(b.WorkTypes)
	if err != nil {
		return fmt.Errorf("failed to encode work_types: %w", err)
	}
	regions, err := marshalRegions(b.Regions)
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}
	formats, err := marshalList(b.Formats)
	if err != nil {
		return fmt.Errorf("failed to encode formats: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO books (
			id, author_id, title, keywords, work_types, regions, formats,
			pub_type, pub_date, copyright, fictional, non_english,
			page_count, word_count, isbn, asin, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.AuthorID, b.Title, keywords, workTypes, regions, formats,
		NullString(b.PubType), NullTime(b.PubDate), NullInt(b.Copyright),
		b.Fictional, b.NonEnglish,
		NullInt(b.PageCount), NullInt(b.WordCount), NullString(b.ISBN), NullString(b.ASIN),
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// GetBook retrieves a book by ID
func (db *DB) GetBook(ctx context.Context, id string) (*Book, error) {
	b := &Book{}
	var keywords, workTypes, regions, formats, pubType, isbn, asin sql.NullString
	var pubDate sql.NullTime
	var copyright, pageCount, wordCount sql.NullInt64

	err := db.QueryRowContext(ctx, `
		SELECT id, author_id, title, keywords, work_types, regions, formats,
		       pub_type, pub_date, copyright, fictional, non_english,
		       page_count, word_count, isbn, asin, created_at, updated_at
		FROM books WHERE id = ?
	`, id).Scan(
		&b.ID, &b.AuthorID, &b.Title, &keywords, &workTypes, &regions, &formats,
		&pubType, &pubDate, &copyright, &b.Fictional, &b.NonEnglish,
		&pageCount, &wordCount, &isbn, &asin, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b.PubType = StringPtr(pubType)
	b.PubDate = TimePtr(pubDate)
	b.Copyright = IntPtr(copyright)
	b.PageCount = IntPtr(pageCount)
	b.WordCount = IntPtr(wordCount)
	b.ISBN = StringPtr(isbn)
	b.ASIN = StringPtr(asin)
	for _, col := range []struct {
		src sql.NullString
		dst *[]string
	}{
		{keywords, &b.Keywords},
		{workTypes, &b.WorkTypes},
		{formats, &b.Formats},
	} {
		if err := unmarshalJSON(col.src, col.dst); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(regions, &b.Regions); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateProduct inserts a new product
func (db *DB) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	features, err := marshalList(p.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, name, features) VALUES (?, ?, ?)
	`, p.ID, p.Name, features)
	return err
}

// CreateSubscription inserts a new subscription
func (db *DB) CreateSubscription(ctx context.Context, s *Subscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, book_id, product_id, enabled, renewed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.BookID, s.ProductID, s.Enabled, s.Renewed, s.CreatedAt, s.UpdatedAt)
	return err
}

const subscriptionColumns = `
	s.id, s.book_id, s.product_id, s.enabled, s.renewed, s.created_at, s.updated_at,
	p.id, p.name, p.features`

func scanSubscription(s scanner) (*Subscription, error) {
	sub := &Subscription{Product: &Product{}}
	var features sql.NullString

	err := s.Scan(
		&sub.ID, &sub.BookID, &sub.ProductID, &sub.Enabled, &sub.Renewed,
		&sub.CreatedAt, &sub.UpdatedAt,
		&sub.Product.ID, &sub.Product.Name, &features,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(features, &sub.Product.Features); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubscription retrieves a subscription with its product
func (db *DB) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s JOIN products p ON p.id = s.product_id
		WHERE s.id = ?
	`, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListEnabledSubscriptions retrieves every subscription the sweep should visit
func (db *DB) ListEnabledSubscriptions(ctx context.Context) ([]*Subscription, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s JOIN products p ON p.id = s.product_id
		WHERE s.enabled
		ORDER BY s.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateRenewed moves a subscription's renewal timestamp forward
func (db *DB) UpdateRenewed(ctx context.Context, id string, renewed time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE subscriptions SET renewed = ?, updated_at = ? WHERE id = ?
	`, renewed, time.Now(), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}
	return nil
}

const matchColumns = `
	m.id, m.subscription_id, m.book_id, m.award_id, m.score, m.scores,
	m.status, m.reason, m.targeting, m.managed, m.targeted, m.submit_by,
	m.created_at, m.updated_at,
	a.name, a.category, a.sponsor_id, a.open_date`

func scanMatch(s scanner) (*Match, error) {
	m := &Match{}
	var scores, targeting sql.NullString
	var targeted, submitBy, openDate sql.NullTime

	err := s.Scan(
		&m.ID, &m.SubscriptionID, &m.BookID, &m.AwardID, &m.Score, &scores,
		&m.Status, &m.Reason, &targeting, &m.Managed, &targeted, &submitBy,
		&m.CreatedAt, &m.UpdatedAt,
		&m.AwardName, &m.AwardCategory, &m.SponsorID, &openDate,
	)
	if err != nil {
		return nil, err
	}

	m.Targeted = TimePtr(targeted)
	m.SubmitBy = TimePtr(submitBy)
	m.OpenDate = TimePtr(openDate)
	if targeting.Valid {
		t := Targeting(targeting.String)
		m.Targeting = &t
	}
	if err := unmarshalJSON(scores, &m.Scores); err != nil {
		return nil, err
	}
	return m, nil
}

func (db *DB) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*Match, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// CreateMatch inserts a new match
func (db *DB) CreateMatch(ctx context.Context, m *Match) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.UpdatedAt = time.Now()

	scores, err := marshalJSON(m.Scores, m.Scores == nil)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	var targeting sql.NullString
	if m.Targeting != nil {
		targeting = sql.NullString{String: string(*m.Targeting), Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO matches (
			id, subscription_id, book_id, award_id, score, scores,
			status, reason, targeting, managed, targeted, submit_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.SubscriptionID, m.BookID, m.AwardID, m.Score, scores,
		m.Status, m.Reason, targeting, m.Managed, NullTime(m.Targeted), NullTime(m.SubmitBy),
		m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// UpdateMatch updates a match's workflow fields
func (db *DB) UpdateMatch(ctx context.Context, m *Match) error {
	m.UpdatedAt = time.Now()

	scores, err := marshalJSON(m.Scores, m.Scores == nil)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	var targeting sql.NullString
	if m.Targeting != nil {
		targeting = sql.NullString{String: string(*m.Targeting), Valid: true}
	}

	result, err := db.ExecContext(ctx, `
		UPDATE matches SET
			score = ?, scores = ?, status = ?, reason = ?, targeting = ?,
			managed = ?, targeted = ?, submit_by = ?, updated_at = ?
		WHERE id = ?
	`,
		m.Score, scores, m.Status, m.Reason, targeting,
		m.Managed, NullTime(m.Targeted), NullTime(m.SubmitBy), m.UpdatedAt, m.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("match not found: %s", m.ID)
	}
	return nil
}

// GetMatch retrieves a match by ID
func (db *DB) GetMatch(ctx context.Context, id string) (*Match, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.id = ?
	`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// PriorMatches retrieves every match ever created for a book, with the award
// identity fields the cousin penalties need
func (db *DB) PriorMatches(ctx context.Context, bookID string) ([]*Match, error) {
	return db.queryMatches(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.book_id = ?
		ORDER BY m.created_at
	`, bookID)
}

// LatestMatch retrieves the most recent match for a subscription. Book-award
// matches and extra-award (non-content) matches track separate cadences.
func (db *DB) LatestMatch(ctx context.Context, subscriptionID string, extra bool) (*Match, error) {
	cond := "a.non_content_types IS NULL"
	if extra {
		cond = "a.non_content_types IS NOT NULL"
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.subscription_id = ? AND `+cond+`
		ORDER BY m.created_at DESC LIMIT 1
	`, subscriptionID)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LatestRenewalTarget retrieves the most recent non-rejected renewal target
func (db *DB) LatestRenewalTarget(ctx context.Context, subscriptionID string) (*Match, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.subscription_id = ?
		AND m.reason = 'renewal'
		AND (m.targeting IS NULL OR m.targeting != ?)
		ORDER BY m.targeted DESC LIMIT 1
	`, subscriptionID, TargetingRejected)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// OpenMatches retrieves a subscription's matches that are still plain
// matches: never targeted, not submitted, not won. These are the pool a new
// target may be drawn from.
func (db *DB) OpenMatches(ctx context.Context, subscriptionID string) ([]*Match, error) {
	return db.queryMatches(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.subscription_id = ?
		AND m.targeting IS NULL
		AND m.status NOT IN (?, ?)
		ORDER BY m.score
	`, subscriptionID, award.StatusSubmitted, award.StatusWon)
}

// CousinMatches retrieves a book's matches against one award family,
// excluding the given match
func (db *DB) CousinMatches(ctx context.Context, bookID, name, sponsorID, excludeID string) ([]*Match, error) {
	return db.queryMatches(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.book_id = ? AND a.name = ? AND a.sponsor_id = ? AND m.id != ?
		ORDER BY m.created_at
	`, bookID, name, sponsorID, excludeID)
}

// CandidateTargets retrieves targets that finished their candidate review
// window and are ready to present
func (db *DB) CandidateTargets(ctx context.Context, before time.Time) ([]*Match, error) {
	return db.queryMatches(ctx, `
		SELECT `+matchColumns+`
		FROM matches m JOIN awards a ON a.id = m.award_id
		WHERE m.targeting = ? AND m.targeted <= ?
		ORDER BY m.targeted
	`, TargetingCandidate, before)
}

// ListMatches retrieves matches for display, newest first
func (db *DB) ListMatches(ctx context.Context, subscriptionID string, limit int) ([]*Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches m JOIN awards a ON a.id = m.award_id
	`
	args := []interface{}{}
	if subscriptionID != "" {
		query += " WHERE m.subscription_id = ?"
		args = append(args, subscriptionID)
	}
	query += " ORDER BY m.created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return db.queryMatches(ctx, query, args...)
}

// CreateMatchState appends an audit row for a match's lifecycle change
func (db *DB) CreateMatchState(ctx context.Context, matchID, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO match_states (id, match_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), matchID, name, time.Now())
	return err
}
