package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frankdev0428/bap/internal/award"
	"github.com/frankdev0428/bap/internal/policy"
)

// Targeting represents where a targeted match sits in its workflow
type Targeting string

const (
	TargetingCandidate Targeting = "candidate" // picked, waiting out the review window
	TargetingPresented Targeting = "presented" // shown to the user with a submit-by date
	TargetingComplete  Targeting = "complete"  // locked in for submission
	TargetingRejected  Targeting = "rejected"  // user declined the target
)

// Award represents one award cycle's criteria and bookkeeping fields.
// Filter lists are nil when the award has no such constraint.
type Award struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	SponsorID     string     `json:"sponsor_id"`
	Website       string     `json:"website"`
	Fee           float64    `json:"fee"`
	OverrideFee   *float64   `json:"override_fee,omitempty"`
	Currency      string     `json:"currency"`
	AllowsDigital bool       `json:"allows_digital"`
	IsScam        bool       `json:"is_scam"`
	Tombstoned    *time.Time `json:"tombstoned,omitempty"`
	CyclesPerYear int        `json:"cycles_per_year"`
	OpenDate      *time.Time `json:"open_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ResultsDate   *time.Time `json:"results_date,omitempty"`

	NonContentTypes  []string `json:"non_content_types,omitempty"`
	PublicationTypes []string `json:"publication_types,omitempty"`
	FictionFilter    []string `json:"fiction_filter,omitempty"`
	FormatsOr        []string `json:"formats_or,omitempty"`
	Disqualifiers    []string `json:"disqualifiers,omitempty"`

	KeywordsOr1  []string `json:"keywords_or1,omitempty"`
	KeywordsOr2  []string `json:"keywords_or2,omitempty"`
	KeywordsAnd  []string `json:"keywords_and,omitempty"`
	KeywordsNot  []string `json:"keywords_not,omitempty"`
	WorkTypesOr  []string `json:"work_types_or,omitempty"`
	WorkTypesAnd []string `json:"work_types_and,omitempty"`
	WorkTypesNot []string `json:"work_types_not,omitempty"`

	BookSetting       []string `json:"book_setting,omitempty"`
	AuthorBirthplace  []string `json:"author_birthplace,omitempty"`
	AuthorLineage     []string `json:"author_lineage,omitempty"`
	AuthorCitizenship []string `json:"author_citizenship,omitempty"`
	AuthorResidency   []string `json:"author_residency,omitempty"`

	PagesMin        *int       `json:"pages_min,omitempty"`
	PagesMax        *int       `json:"pages_max,omitempty"`
	WordsMin        *int       `json:"words_min,omitempty"`
	WordsMax        *int       `json:"words_max,omitempty"`
	PublishStart    *time.Time `json:"publish_start,omitempty"`
	PublishEnd      *time.Time `json:"publish_end,omitempty"`
	CopyrightStart  *int       `json:"copyright_start,omitempty"`
	CopyrightEnd    *int       `json:"copyright_end,omitempty"`
	AuthorBornStart *int       `json:"author_born_start,omitempty"`
	AuthorBornEnd   *int       `json:"author_born_end,omitempty"`
	AgeMin          *int       `json:"age_min,omitempty"`
	AgeMax          *int       `json:"age_max,omitempty"`

	Static award.StaticScores `json:"static_scores"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Criteria converts the stored award into the scoring engine's input.
func (a *Award) Criteria() *award.Criteria {
	return &award.Criteria{
		ID:                a.ID,
		Name:              a.Name,
		Category:          a.Category,
		SponsorID:         a.SponsorID,
		Website:           a.Website,
		Fee:               a.Fee,
		OverrideFee:       a.OverrideFee,
		Currency:          a.Currency,
		AllowsDigital:     a.AllowsDigital,
		NonContentTypes:   a.NonContentTypes,
		CyclesPerYear:     a.CyclesPerYear,
		OpenDate:          a.OpenDate,
		DueDate:           a.DueDate,
		ResultsDate:       a.ResultsDate,
		KeywordsOr1:       a.KeywordsOr1,
		KeywordsOr2:       a.KeywordsOr2,
		KeywordsAnd:       a.KeywordsAnd,
		KeywordsNot:       a.KeywordsNot,
		WorkTypesOr:       a.WorkTypesOr,
		WorkTypesAnd:      a.WorkTypesAnd,
		BookSetting:       a.BookSetting,
		AuthorBirthplace:  a.AuthorBirthplace,
		AuthorLineage:     a.AuthorLineage,
		AuthorCitizenship: a.AuthorCitizenship,
		AuthorResidency:   a.AuthorResidency,
		Static:            a.Static,
	}
}

// Author represents a book's author
type Author struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Born      int            `json:"born,omitempty"` // birth year, 0 = unknown
	Regions   []award.Region `json:"regions,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Book represents a subscriber's book
type Book struct {
	ID         string         `json:"id"`
	AuthorID   string         `json:"author_id"`
	Title      string         `json:"title"`
	Keywords   []string       `json:"keywords,omitempty"`
	WorkTypes  []string       `json:"work_types,omitempty"`
	Regions    []award.Region `json:"regions,omitempty"`
	Formats    []string       `json:"formats,omitempty"`
	PubType    *string        `json:"pub_type,omitempty"`
	PubDate    *time.Time     `json:"pub_date,omitempty"`
	Copyright  *int           `json:"copyright,omitempty"`
	Fictional  bool           `json:"fictional"`
	NonEnglish bool           `json:"non_english"`
	PageCount  *int           `json:"page_count,omitempty"`
	WordCount  *int           `json:"word_count,omitempty"`
	ISBN       *string        `json:"isbn,omitempty"`
	ASIN       *string        `json:"asin,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Record converts the stored book and its author into the scoring engine's
// input.
func (b *Book) Record(a *Author) *award.Book {
	out := &award.Book{
		ID:        b.ID,
		Title:     b.Title,
		Keywords:  b.Keywords,
		WorkTypes: b.WorkTypes,
		Regions:   b.Regions,
	}
	if a != nil {
		out.Author = award.Author{
			ID:      a.ID,
			Name:    a.Name,
			Born:    a.Born,
			Regions: a.Regions,
		}
	}
	return out
}

// CopyrightYear is the copyright year, falling back to the publication year.
func (b *Book) CopyrightYear() int {
	if b.Copyright != nil {
		return *b.Copyright
	}
	if b.PubDate != nil {
		return b.PubDate.Year()
	}
	return 0
}

// Product represents a service plan
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Features []string `json:"features,omitempty"`
}

// Subscription ties a book to a product plan
type Subscription struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	ProductID string    `json:"product_id"`
	Enabled   bool      `json:"enabled"`
	Renewed   time.Time `json:"renewed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Loaded via join
	Product *Product `json:"product,omitempty"`
}

// Policy converts the subscription into the eligibility policy's input.
func (s *Subscription) Policy() *policy.Subscription {
	var features []string
	if s.Product != nil {
		features = s.Product.Features
	}
	return &policy.Subscription{
		ID:       s.ID,
		Renewed:  s.Renewed,
		Features: features,
	}
}

// Match represents a (book, award) pairing the system has surfaced, and its
// targeting workflow state when it was picked for submission
type Match struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	BookID         string          `json:"book_id"`
	AwardID        string          `json:"award_id"`
	Score          int             `json:"score"`
	Scores         award.Breakdown `json:"scores,omitempty"`
	Status         award.Status    `json:"status"`
	Reason         string          `json:"reason"`
	Targeting      *Targeting      `json:"targeting,omitempty"`
	Managed        bool            `json:"managed"`
	Targeted       *time.Time      `json:"targeted,omitempty"`
	SubmitBy       *time.Time      `json:"submit_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Loaded via join on awards
	AwardName     string     `json:"award_name,omitempty"`
	AwardCategory string     `json:"award_category,omitempty"`
	SponsorID     string     `json:"sponsor_id,omitempty"`
	OpenDate      *time.Time `json:"open_date,omitempty"`
}

// Prior converts the stored match into the history layer's input.
func (m *Match) Prior() award.PriorMatch {
	return award.PriorMatch{
		ID:        m.ID,
		AwardID:   m.AwardID,
		AwardName: m.AwardName,
		Category:  m.AwardCategory,
		SponsorID: m.SponsorID,
		OpenDate:  m.OpenDate,
		Status:    m.Status,
		Created:   m.CreatedAt,
	}
}

// NullString is a helper to convert *string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullFloat64 is a helper to convert *float64 to sql.NullFloat64
func NullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// NullInt is a helper to convert *int to sql.NullInt64
func NullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// NullTime is a helper to convert *time.Time to sql.NullTime
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// StringPtr converts sql.NullString to *string
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// Float64Ptr converts sql.NullFloat64 to *float64
func Float64Ptr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

// IntPtr converts sql.NullInt64 to *int
func IntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

// TimePtr converts sql.NullTime to *time.Time
func TimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// marshalJSON stores a value as a JSON column, NULL when the value is nil.
// Nil and empty are distinct on purpose: a nil filter list means "no
// constraint" and must round-trip as nil.
func marshalJSON(v interface{}, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode column: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalJSON loads a JSON column into out, leaving it untouched on NULL.
func unmarshalJSON(ns sql.NullString, out interface{}) error {
	if !ns.Valid {
		return nil
	}
	if err := json.Unmarshal([]byte(ns.String), out); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
