package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind declares how a ruleset is applied
type RuleKind string

const (
	RuleKindProgressive   RuleKind = "progressive"    // marginal slices per bracket
	RuleKindFlatThreshold RuleKind = "flat_threshold" // one rate on the whole income
)

// Bracket is one step of a progressive ladder. A nil UpperBound means unbounded.
type Bracket struct {
	UpperBound *decimal.Decimal `json:"upper_bound"`
	Rate       decimal.Decimal  `json:"rate"` // e.g. 0.15 = 15%
}

// Unbounded reports whether the bracket has no upper limit
func (b Bracket) Unbounded() bool {
	return b.UpperBound == nil
}

// Ruleset stores one versioned tax table with temporal validity
type Ruleset struct {
	Version       string          `json:"version"`
	TaxType       string          `json:"tax_type"` // PIT, CIT
	Class         TaxpayerClass   `json:"class"`
	TaxYear       int             `json:"tax_year"`
	Kind          RuleKind        `json:"kind"`
	Brackets      []Bracket       `json:"brackets,omitempty"`
	Threshold     decimal.Decimal `json:"threshold"`  // flat_threshold only
	BelowRate     decimal.Decimal `json:"below_rate"` // income < threshold
	AboveRate     decimal.Decimal `json:"above_rate"` // income >= threshold
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"` // nullable = open ended
	Description   string          `json:"description"`
}

// CoversDate reports whether the ruleset's effective window contains t
func (r Ruleset) CoversDate(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !t.After(*r.EffectiveTo)
}
