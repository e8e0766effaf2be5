// Package award scores a book against an award's eligibility criteria.
//
// Scoring is a pure computation: it never touches storage and expresses
// disqualification as a nil Breakdown, not an error. Callers are expected to
// have already narrowed the award list with the static predicates in the
// database layer; this package handles everything that needs keyword, work
// type, or region set logic.
package award

import "time"

// Kind tags a region entry with what it describes.
type Kind string

const (
	KindSetting     Kind = "Setting"
	KindBirthplace  Kind = "Birthplace"
	KindLineage     Kind = "Lineage"
	KindCitizenship Kind = "Citizenship"
	KindResidence   Kind = "Residence"
)

// Region is one geographic tag on a book or author. A region can carry
// country codes, free-text names, or both.
type Region struct {
	Kind      Kind     `json:"kind"`
	Countries []string `json:"countries,omitempty"`
	Names     []string `json:"names,omitempty"`
}

// Author is the sub-record of a book used by region and age criteria.
type Author struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Born    int      `json:"born,omitempty"` // birth year, 0 = unknown
	Regions []Region `json:"regions,omitempty"`
}

// Book holds the attributes scoring reads. All fields are read-only inputs.
type Book struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	WorkTypes []string `json:"work_types,omitempty"`
	Regions   []Region `json:"regions,omitempty"`
	Author    Author   `json:"author"`
}

// StaticScores are the curated bonus/penalty integers entered by award
// researchers. Each non-zero field is added to the breakdown as-is.
type StaticScores struct {
	Categories      int `json:"scoreCategories,omitempty"`
	EntrySteps      int `json:"scoreEntrySteps,omitempty"`
	Stability       int `json:"scoreStability,omitempty"`
	Helpful         int `json:"scoreHelpful,omitempty"`
	CyclesPerYear   int `json:"scoreCyclesPerYear,omitempty"`
	WinnerValue     int `json:"scoreWinnerValue,omitempty"`
	Benefits        int `json:"scoreBenefits,omitempty"`
	QuickResults    int `json:"scoreQuickResults,omitempty"`
	MultipleWinners int `json:"scoreMultipleWinners,omitempty"`
	Attractive      int `json:"scoreAttractive,omitempty"`
	Bonus           int `json:"scoreBonus,omitempty"`
}

// fields returns the breakdown key for each static score alongside its value.
func (s StaticScores) fields() []staticField {
	return []staticField{
		{"scoreCategories", s.Categories},
		{"scoreEntrySteps", s.EntrySteps},
		{"scoreStability", s.Stability},
		{"scoreHelpful", s.Helpful},
		{"scoreCyclesPerYear", s.CyclesPerYear},
		{"scoreWinnerValue", s.WinnerValue},
		{"scoreBenefits", s.Benefits},
		{"scoreQuickResults", s.QuickResults},
		{"scoreMultipleWinners", s.MultipleWinners},
		{"scoreAttractive", s.Attractive},
		{"scoreBonus", s.Bonus},
	}
}

type staticField struct {
	key   string
	value int
}

// Criteria is one award cycle's eligibility rules and metadata.
//
// Every filter list follows the same convention: nil means "no constraint",
// a non-nil list is a hard requirement that disqualifies on failure.
type Criteria struct {
	ID        string
	Name      string
	Category  string
	SponsorID string
	Website   string

	Fee         float64
	OverrideFee *float64 // curated fee that supersedes the nominal fee when set
	Currency    string

	AllowsDigital   bool
	NonContentTypes []string // non-empty marks an award about something other than the text (cover design, etc)
	CyclesPerYear   int

	OpenDate    *time.Time
	DueDate     *time.Time
	ResultsDate *time.Time

	KeywordsOr1 []string
	KeywordsOr2 []string
	KeywordsAnd []string
	KeywordsNot []string

	WorkTypesOr  []string
	WorkTypesAnd []string

	BookSetting       []string
	AuthorBirthplace  []string
	AuthorLineage     []string
	AuthorCitizenship []string
	AuthorResidency   []string

	Static StaticScores
}

// EffectiveFee is the override fee when one is set, else the nominal fee.
// The override is checked for presence rather than zero so a curated $0 fee
// still wins.
func (c *Criteria) EffectiveFee() float64 {
	if c.OverrideFee != nil {
		return *c.OverrideFee
	}
	return c.Fee
}

// NonContent reports whether the award judges something other than the
// book's content.
func (c *Criteria) NonContent() bool {
	return len(c.NonContentTypes) > 0
}

// regionValues returns the countries and names of the book/author's first
// region entry of the given kind, or nil when no entry of that kind exists.
func regionValues(kind Kind, regions []Region) []string {
	for _, r := range regions {
		if r.Kind == kind {
			return append(append([]string{}, r.Countries...), r.Names...)
		}
	}
	return nil
}
