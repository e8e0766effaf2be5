package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/frankdev0428/bap/internal/database"
	"github.com/frankdev0428/bap/internal/matcher"
	"github.com/frankdev0428/bap/internal/schedule"
)

// Table writes data as a formatted table to stdout
func Table(data interface{}) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to the given writer
func TableTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case []*schedule.Candidate:
		return candidatesTable(w, v)
	case []*database.Match:
		return matchesTable(w, v)
	case []*database.Subscription:
		return subscriptionsTable(w, v)
	case *matcher.Result:
		return resultsTable(w, []*matcher.Result{v})
	case []*matcher.Result:
		return resultsTable(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func candidatesTable(w io.Writer, cands []*schedule.Candidate) error {
	if len(cands) == 0 {
		fmt.Fprintln(w, "No candidate awards found.")
		return nil
	}

	t := tablewriter.NewTable(w)
	t.Header([]string{"Award", "Category", "Score", "Fee", "Due", "Days"})
	for _, c := range cands {
		kind := ""
		if c.NonContent {
			kind = " *"
		}
		t.Append([]string{
			truncate(c.Name, 32) + kind,
			truncate(c.Category, 28),
			strconv.Itoa(c.Score),
			fmt.Sprintf("$%.0f", c.Fee),
			c.DueDate.Format("Jan 02"),
			strconv.Itoa(c.Days),
		})
	}
	if err := t.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d candidates (* = extra award)\n", len(cands))
	return nil
}

func matchesTable(w io.Writer, matches []*database.Match) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return nil
	}

	t := tablewriter.NewTable(w)
	t.Header([]string{"Award", "Category", "Score", "Status", "Targeting", "Created"})
	for _, m := range matches {
		targeting := "-"
		if m.Targeting != nil {
			targeting = string(*m.Targeting)
		}
		status := string(m.Status)
		if status == "" {
			status = "-"
		}
		t.Append([]string{
			truncate(m.AwardName, 32),
			truncate(m.AwardCategory, 28),
			strconv.Itoa(m.Score),
			status,
			targeting,
			m.CreatedAt.Format("Jan 02"),
		})
	}
	return t.Render()
}

func subscriptionsTable(w io.Writer, subs []*database.Subscription) error {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No subscriptions found.")
		return nil
	}

	t := tablewriter.NewTable(w)
	t.Header([]string{"ID", "Book", "Plan", "Enabled", "Renewed"})
	for _, s := range subs {
		plan := "-"
		if s.Product != nil {
			plan = s.Product.Name
		}
		t.Append([]string{
			s.ID,
			s.BookID,
			plan,
			strconv.FormatBool(s.Enabled),
			s.Renewed.Format("Jan 02, 2006"),
		})
	}
	return t.Render()
}

func resultsTable(w io.Writer, results []*matcher.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "Nothing processed.")
		return nil
	}

	t := tablewriter.NewTable(w)
	t.Header([]string{"Subscription", "Matched", "Target", "Reasons"})
	for _, r := range results {
		if r.Skipped {
			t.Append([]string{r.SubscriptionID, "-", "-", "skipped"})
			continue
		}
		target := "-"
		if r.Target != nil {
			target = truncate(r.Target.AwardName, 32)
			if target == "" {
				target = r.Target.AwardID
			}
		}
		t.Append([]string{
			r.SubscriptionID,
			strconv.Itoa(len(r.Created)),
			target,
			reasons(r),
		})
	}
	return t.Render()
}

func reasons(r *matcher.Result) string {
	out := ""
	for _, reason := range []string{string(r.MatchReason), string(r.ExtraReason), string(r.TargetReason)} {
		if reason == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += reason
	}
	if out == "" {
		return "-"
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
