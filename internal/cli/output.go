package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"taxtracker/internal/model"
	"taxtracker/internal/service"
	"taxtracker/pkg/pagination"
)

// OutputFormatter handles JSON vs text output for CLI commands
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON output envelope
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Emit writes data as JSON, or calls text for the human-readable form
func (f *OutputFormatter) Emit(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail writes a failed outcome. Text output is left to the returned error.
func (f *OutputFormatter) Fail(data any, msg string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Data: data, Error: msg})
	}
	return nil
}

func printIdentity(w io.Writer, id model.Identity) {
	if !id.Authenticated() {
		fmt.Fprintln(w, "Not signed in")
		return
	}
	fmt.Fprintf(w, "Signed in as %s (%s account, user %s)\n", id.DisplayName, id.TaxpayerClass, id.UserID)
}

func printCalculation(w io.Writer, r *model.CalculationResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Period:\t%s\n", r.Input.Period)
	fmt.Fprintf(tw, "Taxpayer:\t%s (%s, ruleset %s)\n", r.Input.TaxpayerClass, r.TaxType, r.RulesetVersion)
	fmt.Fprintf(tw, "Income:\t%s\n", r.Input.Income.StringFixed(2))
	fmt.Fprintf(tw, "Tax payable:\t%s\n", r.TaxPayable.StringFixed(2))
	fmt.Fprintf(tw, "Effective rate:\t%s%%\n", r.EffectiveRatePercent.StringFixed(2))
	status := "not saved"
	if r.Saved {
		status = "saved as record " + r.RecordID
	}
	fmt.Fprintf(tw, "Status:\t%s\n", status)
	_ = tw.Flush()

	if len(r.Breakdown) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "BRACKET\tTAXABLE\tTAX\t")
	for _, s := range r.Breakdown {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", s.BracketIndex+1, s.TaxableSlice.StringFixed(2), s.TaxFromSlice.StringFixed(2))
	}
	_ = tw.Flush()
}

func printOutcome(w io.Writer, o service.SubmissionOutcome) {
	switch o.Status {
	case service.OutcomeSubmitted:
		fmt.Fprintf(w, "Saved as record %s\n", o.RecordID)
	case service.OutcomeAlreadySubmitted:
		fmt.Fprintf(w, "Already saved as record %s\n", o.RecordID)
	}
}

func printRecords(w io.Writer, page pagination.Page[model.TaxRecord]) {
	if page.Total == 0 {
		fmt.Fprintln(w, "No tax records")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPERIOD\tTYPE\tINCOME\tTAX\tSTATUS")
	for _, r := range page.Items {
		status := "unpaid"
		if r.IsPaid {
			status = "paid"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Period(), r.TaxType,
			r.TotalIncome.StringFixed(2), r.TaxAmount.StringFixed(2), status)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Page %d, %d of %d records\n", page.Page, len(page.Items), page.Total)
}

func printRulesets(w io.Writer, rulesets []model.Ruleset) {
	for _, rs := range rulesets {
		fmt.Fprintf(w, "%s  %s %s, tax year %d, from %s\n", rs.Version, rs.TaxType, rs.Class,
			rs.TaxYear, rs.EffectiveFrom.Format(time.DateOnly))
		switch rs.Kind {
		case model.RuleKindFlatThreshold:
			fmt.Fprintf(w, "  below %s: %s%%, from %s: %s%%\n", rs.Threshold.StringFixed(0),
				rs.BelowRate.Shift(2).String(), rs.Threshold.StringFixed(0), rs.AboveRate.Shift(2).String())
		default:
			for _, b := range rs.Brackets {
				bound := "and above"
				if !b.Unbounded() {
					bound = "up to " + b.UpperBound.StringFixed(0)
				}
				fmt.Fprintf(w, "  %s: %s%%\n", bound, b.Rate.Shift(2).String())
			}
		}
	}
}

func printFields(w io.Writer, fields model.Fields) {
	keys := slices.Sorted(maps.Keys(fields))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, fields.String(k))
	}
	_ = tw.Flush()
}

func printReminders(w io.Writer, resp service.RemindersResponse) {
	if len(resp.Reminders) == 0 {
		fmt.Fprintln(w, "No reminders")
		return
	}
	for _, r := range resp.Reminders {
		mark := "*"
		if r.IsCompleted {
			mark = " "
		}
		fmt.Fprintf(w, "%s %s", mark, r.Title)
		if r.Message != "" {
			fmt.Fprintf(w, ": %s", r.Message)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d unread\n", resp.Unread)
}
