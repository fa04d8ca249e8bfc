package taxengine

import (
	"errors"
	"fmt"

	"taxtracker/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput is returned for a non-positive income
	ErrInvalidInput = errors.New("invalid calculation input")
	// ErrInvalidRuleset is returned for a malformed rate table. It indicates a
	// configuration bug and must not be shown to users as their mistake.
	ErrInvalidRuleset = errors.New("invalid tax ruleset")
)

var one = decimal.NewFromInt(1)

// Validate checks a ruleset's invariants for its declared kind
func Validate(rs model.Ruleset) error {
	var err error
	switch rs.Kind {
	case model.RuleKindProgressive:
		err = validateBrackets(rs.Brackets)
	case model.RuleKindFlatThreshold:
		err = validateFlatThreshold(rs)
	default:
		err = fmt.Errorf("unknown kind %q", rs.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: ruleset %q: %v", ErrInvalidRuleset, rs.Version, err)
	}
	return nil
}

func validateBrackets(brackets []model.Bracket) error {
	if len(brackets) == 0 {
		return errors.New("no brackets")
	}

	last := len(brackets) - 1
	prev := decimal.Zero
	for i, b := range brackets {
		if err := validateRate(b.Rate); err != nil {
			return fmt.Errorf("bracket %d: %w", i, err)
		}
		if b.Unbounded() {
			if i != last {
				return fmt.Errorf("bracket %d: only the final bracket may be unbounded", i)
			}
			continue
		}
		if i == last {
			return fmt.Errorf("bracket %d: final bracket must be unbounded", i)
		}
		if !b.UpperBound.GreaterThan(prev) {
			return fmt.Errorf("bracket %d: upper bound %s must exceed %s", i, b.UpperBound, prev)
		}
		prev = *b.UpperBound
	}
	return nil
}

func validateFlatThreshold(rs model.Ruleset) error {
	if !rs.Threshold.IsPositive() {
		return fmt.Errorf("threshold %s must be positive", rs.Threshold)
	}
	if err := validateRate(rs.BelowRate); err != nil {
		return fmt.Errorf("below rate: %w", err)
	}
	if err := validateRate(rs.AboveRate); err != nil {
		return fmt.Errorf("above rate: %w", err)
	}
	return nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return fmt.Errorf("rate %s outside [0,1]", rate)
	}
	return nil
}
