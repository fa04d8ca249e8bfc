package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"taxtracker/internal/app"
	"taxtracker/internal/service"

	"github.com/spf13/cobra"
)

func NewComputeCommand(opts *RootOptions) *cobra.Command {
	var req service.CalculateRequest
	now := time.Now()

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute tax and keep the result as the pending calculation",
		Example: `  taxtrack compute --income 1,000,000 --month January --year 2026
  taxtrack compute --income 30000000 --format json`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&req.Income, "income", "", "income or turnover for the period")
	cmd.Flags().StringVar(&req.Month, "month", now.Month().String(), "month name")
	cmd.Flags().IntVar(&req.Year, "year", now.Year(), "tax year")
	_ = cmd.MarkFlagRequired("income")

	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		result, err := a.Calculations.Calculate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return out.Emit(result, func(w io.Writer) {
			printCalculation(w, result)
			fmt.Fprintln(w, "\nRun `taxtrack submit` to save this calculation.")
		})
	})
	return cmd
}

func NewPendingCommand(opts *RootOptions) *cobra.Command {
	var discard bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show or discard the pending calculation",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&discard, "discard", false, "drop the pending calculation")

	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		if discard {
			if err := a.Calculations.Discard(cmd.Context()); err != nil {
				return err
			}
			return out.Emit(map[string]bool{"discarded": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Pending calculation discarded")
			})
		}

		result, err := a.Calculations.Pending(cmd.Context())
		if errors.Is(err, service.ErrNoPendingCalculation) {
			return out.Emit(nil, func(w io.Writer) { fmt.Fprintln(w, "No pending calculation") })
		}
		if err != nil {
			return err
		}
		return out.Emit(result, func(w io.Writer) { printCalculation(w, result) })
	})
	return cmd
}

func NewSubmitCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Save the pending calculation as a tax record",
		Long:  "Save the pending calculation. A calculation is saved at most once; repeating the command reports the existing record.",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(a *app.App, out *OutputFormatter) error {
		outcome, err := a.Calculations.SubmitPending(cmd.Context())
		if err != nil {
			return err
		}
		if outcome.Status == service.OutcomeFailed {
			if err := out.Fail(outcome, outcome.Message); err != nil {
				return err
			}
			return fmt.Errorf("save failed (%s): %s", outcome.Reason, outcome.Message)
		}
		return out.Emit(outcome, func(w io.Writer) { printOutcome(w, outcome) })
	})
	return cmd
}
