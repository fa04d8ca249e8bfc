package cli

import (
	"fmt"
	"io"

	"taxtracker/internal/app"
	"taxtracker/internal/service"
	"taxtracker/pkg/pagination"

	"github.com/spf13/cobra"
)

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		filter      service.RecordFilter
		page, limit int
		summary     bool
		remote      bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved tax records",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&filter.Month, "month", "", "only records for this month")
	cmd.Flags().IntVar(&filter.Year, "year", 0, "only records for this tax year")
	cmd.Flags().StringVar(&filter.Status, "status", "", "paid or unpaid")
	cmd.Flags().IntVar(&page, "page", pagination.DefaultPage, "page number")
	cmd.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "records per page")
	cmd.Flags().BoolVar(&summary, "summary", false, "print paid and unpaid totals instead")
	cmd.Flags().BoolVar(&remote, "remote", false, "with --summary, print the summary kept by the tax API")

	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		if summary && remote {
			fields, err := a.History.RemoteSummary(cmd.Context())
			if err != nil {
				return userError(err)
			}
			return out.Emit(fields, func(w io.Writer) { printFields(w, fields) })
		}
		if summary {
			sum, err := a.History.Summary(cmd.Context())
			if err != nil {
				return userError(err)
			}
			return out.Emit(sum, func(w io.Writer) {
				fmt.Fprintf(w, "%d records: %d paid (%s), %d unpaid (%s)\n", sum.TotalRecords,
					sum.PaidCount, sum.PaidAmount.StringFixed(2), sum.UnpaidCount, sum.UnpaidAmount.StringFixed(2))
			})
		}

		records, err := a.History.Records(cmd.Context(), filter, pagination.New(page, limit))
		if err != nil {
			return userError(err)
		}
		return out.Emit(records, func(w io.Writer) { printRecords(w, records) })
	})
	return cmd
}

func NewPayCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <record-id>",
		Short: "Mark a tax record as paid today",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withApp(opts, func(a *app.App, out *OutputFormatter) error {
			record, err := a.History.MarkPaid(c.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			return out.Emit(record, func(w io.Writer) {
				fmt.Fprintf(w, "Record %s (%s) marked paid\n", record.ID, record.Period())
			})
		})(c, args)
	}
	return cmd
}

func NewRemindersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List tax reminders",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		resp, err := a.History.Reminders(cmd.Context())
		if err != nil {
			return userError(err)
		}
		return out.Emit(resp, func(w io.Writer) { printReminders(w, resp) })
	})
	return cmd
}

func NewRulesetsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rulesets",
		Short: "List the configured tax rulesets",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		rulesets := a.Rules.List()
		return out.Emit(rulesets, func(w io.Writer) { printRulesets(w, rulesets) })
	})
	return cmd
}
