// Package taxengine computes income tax from a versioned ruleset.
// It performs no I/O and keeps no state between calls.
package taxengine

import (
	"fmt"

	"taxtracker/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compute applies the ruleset to the input income. The result carries no id
// or timestamp; callers that persist it assign those.
func Compute(input model.CalculationInput, rs model.Ruleset) (model.CalculationResult, error) {
	if !input.Income.IsPositive() {
		return model.CalculationResult{}, fmt.Errorf("%w: income must be greater than zero, got %s", ErrInvalidInput, input.Income)
	}
	if err := Validate(rs); err != nil {
		return model.CalculationResult{}, err
	}

	var (
		tax       decimal.Decimal
		breakdown []model.SliceContribution
	)
	switch rs.Kind {
	case model.RuleKindProgressive:
		tax, breakdown = progressive(input.Income, rs.Brackets)
	case model.RuleKindFlatThreshold:
		tax, breakdown = flatThreshold(input.Income, rs)
	}

	taxType := rs.TaxType
	if taxType == "" {
		taxType = input.TaxpayerClass.TaxType()
	}

	return model.CalculationResult{
		Input:                input,
		TaxType:              taxType,
		RulesetVersion:       rs.Version,
		TaxPayable:           tax,
		EffectiveRatePercent: EffectiveRate(tax, input.Income),
		Breakdown:            breakdown,
	}, nil
}

// EffectiveRate is tax/income as a percentage, rounded half-up to 2 places
func EffectiveRate(tax, income decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return tax.Mul(hundred).DivRound(income, 2)
}

// progressive taxes each slice of income at its bracket's marginal rate.
// The accumulator is exact; nothing is rounded here.
func progressive(income decimal.Decimal, brackets []model.Bracket) (decimal.Decimal, []model.SliceContribution) {
	total := decimal.Zero
	breakdown := make([]model.SliceContribution, 0, len(brackets))
	prev := decimal.Zero

	for i, b := range brackets {
		top := income
		if !b.Unbounded() && b.UpperBound.LessThan(income) {
			top = *b.UpperBound
		}

		slice := top.Sub(prev)
		if slice.IsPositive() {
			contribution := slice.Mul(b.Rate)
			total = total.Add(contribution)
			breakdown = append(breakdown, model.SliceContribution{
				BracketIndex: i,
				TaxableSlice: slice,
				TaxFromSlice: contribution,
			})
		}

		if b.Unbounded() || income.LessThanOrEqual(*b.UpperBound) {
			break
		}
		prev = *b.UpperBound
	}

	return total, breakdown
}

// flatThreshold applies a single rate to the whole income, chosen by which
// side of the threshold the income falls on
func flatThreshold(income decimal.Decimal, rs model.Ruleset) (decimal.Decimal, []model.SliceContribution) {
	index, rate := 0, rs.BelowRate
	if income.GreaterThanOrEqual(rs.Threshold) {
		index, rate = 1, rs.AboveRate
	}
	tax := income.Mul(rate)
	return tax, []model.SliceContribution{{
		BracketIndex: index,
		TaxableSlice: income,
		TaxFromSlice: tax,
	}}
}
