package award

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// AllRegions is the sentinel entry data entry uses for "any region counts".
const AllRegions = "ANY/ALL REGIONS"

// tooGeneric matches categories that say nothing useful about the book once
// lowercased and stripped of non-alphanumerics.
var tooGeneric = regexp.MustCompile(`^(?:general|(?:non)?fiction|miscellaneous|crossgenre|wildcard|other|ebook|novel|generalinterest|audio(?:book|drama)s?|oftheyear)+$`)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Breakdown maps named scoring components to their contribution. The "total"
// key always equals the sum of every other entry.
type Breakdown map[string]int

// Total is the summed score, 0 for an empty breakdown.
func (b Breakdown) Total() int {
	return b["total"]
}

// Add records a component and keeps the total in sync.
func (b Breakdown) Add(key string, value int) {
	b[key] = value
	b["total"] += value
}

// sum recomputes the total from scratch.
func (b Breakdown) sum() {
	delete(b, "total")
	total := 0
	for _, v := range b {
		total += v
	}
	b["total"] = total
}

// Score evaluates a book against an award's criteria. It returns nil when any
// hard requirement fails; otherwise the breakdown names every contributing
// component. Scores are not comparable across books, only across awards for
// the same book.
func Score(c *Criteria, b *Book, now time.Time) Breakdown {
	scores := Breakdown{}

	// keywords
	if c.KeywordsNot != nil && intersect(b.Keywords, c.KeywordsNot) != 0 {
		return nil
	}
	or1 := 0
	or2 := 0
	if c.KeywordsOr1 != nil {
		hits := intersect(b.Keywords, c.KeywordsOr1)
		if hits == 0 {
			return nil
		}
		or1 = 4 * hits
		if hits == len(c.KeywordsOr1) {
			or1 *= 2 // perfect match bonus
		}
	}
	if c.KeywordsOr2 != nil {
		hits := intersect(b.Keywords, c.KeywordsOr2)
		if hits == 0 {
			return nil
		}
		or2 = 4 * hits
		if hits == len(c.KeywordsOr2) {
			or2 *= 2 // perfect match bonus
		}
	}
	if or1+or2 != 0 {
		scores["orKeywords"] = or1 + or2
	}
	if c.KeywordsAnd != nil {
		if missing(c.KeywordsAnd, b.Keywords) != 0 {
			return nil
		}
		scores["andKeywords"] = 21 * len(c.KeywordsAnd)
	}
	// preferred keywords, counted once no matter how many match
	for _, kw := range flatten(c.KeywordsAnd, c.KeywordsOr1, c.KeywordsOr2) {
		if bonus, ok := preferredKeywords[kw]; ok && contains(b.Keywords, kw) {
			scores["preferredKeyword"] = bonus
			break
		}
	}

	// work types
	if c.WorkTypesOr != nil {
		hits := intersect(c.WorkTypesOr, b.WorkTypes)
		if hits == 0 {
			return nil
		}
		scores["orWorkTypes"] = 11 * hits
	}
	if c.WorkTypesAnd != nil {
		if missing(c.WorkTypesAnd, b.WorkTypes) != 0 {
			return nil
		}
		scores["andWorkTypes"] = 13 * len(c.WorkTypesAnd)
	}

	// regions, no bonus for multiple matching kinds
	if !checkRegion(scores, c.BookSetting, regionValues(KindSetting, b.Regions)) {
		return nil
	}
	if !checkRegion(scores, c.AuthorBirthplace, regionValues(KindBirthplace, b.Author.Regions)) {
		return nil
	}
	if !checkRegion(scores, c.AuthorLineage, regionValues(KindLineage, b.Author.Regions)) {
		return nil
	}
	if !checkRegion(scores, c.AuthorCitizenship, regionValues(KindCitizenship, b.Author.Regions)) {
		return nil
	}
	if !checkRegion(scores, c.AuthorResidency, regionValues(KindResidence, b.Author.Regions)) {
		return nil
	}

	// curated static scores, added as-is
	for _, f := range c.Static.fields() {
		if f.value != 0 {
			scores[f.key] = f.value
		}
	}

	if c.AllowsDigital {
		scores["digital"] = 20
	}

	// NOTE: all currencies treated the same; an exchange rate would go here
	if fee := c.EffectiveFee(); fee != 0 {
		scores["fee"] = feeScore(fee)
	}
	if c.Website == "" {
		scores["website"] = -10
	}
	if c.DueDate != nil {
		// awards due sooner score higher
		if ddays := daysBetween(*c.DueDate, now); ddays >= 0 && ddays <= 60 {
			scores["dueDate"] = int(math.Round(float64(60-ddays) / 2))
		}
		if c.ResultsDate != nil {
			// announces results quickly
			rdays := daysBetween(*c.ResultsDate, *c.DueDate)
			if rdays <= 45 {
				scores["quickDraw"] = 10
			} else if rdays <= 90 {
				scores["quickDraw"] = 5
			}
		}
	}
	if c.NonContent() {
		scores["nonContentType"] = -80
	}
	if tooGeneric.MatchString(normalizeCategory(c.Category)) {
		scores["generic"] = -41
	}
	switch {
	case c.CyclesPerYear > 4:
		scores["cycles"] = -66
	case c.CyclesPerYear > 3:
		scores["cycles"] = -44
	case c.CyclesPerYear > 2:
		scores["cycles"] = -14
	case c.CyclesPerYear > 1:
		scores["cycles"] = -5
	}

	scores.sum()
	return scores
}

// feeScore is a step function of the effective fee: cheap awards are fine,
// the $6-100 range is actively good value, expensive ones are penalized.
func feeScore(fee float64) int {
	switch {
	case fee <= 5:
		return 0
	case fee <= 60:
		return 25
	case fee <= 70:
		return 21
	case fee <= 80:
		return 15
	case fee <= 90:
		return 6
	case fee <= 100:
		return 0
	case fee <= 150:
		return -11
	default:
		return -16
	}
}

// checkRegion applies one region requirement. A nil requirement always
// passes. The AllRegions sentinel requires any entry of the kind but scores
// nothing; a concrete overlap scores a flat 20. Each matching kind rewrites
// the same key, so multiple kinds never stack.
func checkRegion(scores Breakdown, required, have []string) bool {
	if required == nil {
		return true
	}
	if contains(required, AllRegions) {
		return len(have) != 0
	}
	if intersect(required, have) == 0 {
		return false
	}
	scores["regions"] = 20
	return true
}

func normalizeCategory(category string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(category), "")
}

// daysBetween counts whole days from now to t, negative when t is past.
func daysBetween(t, now time.Time) int {
	return int(t.Sub(now).Hours() / 24)
}

func intersect(a, b []string) int {
	n := 0
	for _, v := range a {
		if contains(b, v) {
			n++
		}
	}
	return n
}

// missing counts entries of required absent from have.
func missing(required, have []string) int {
	n := 0
	for _, v := range required {
		if !contains(have, v) {
			n++
		}
	}
	return n
}

func contains(l []string, v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

func flatten(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
