package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is the month a calculation is filed for
type Period struct {
	Month string `json:"month"` // full English month name, e.g. "January"
	Year  int    `json:"year"`
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// ParseMonth accepts full or three-letter English month names, any case
func ParseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || s == name[:3] {
			return m, true
		}
	}
	return 0, false
}

// CalculationInput is created per calculation request and never persisted on its own
type CalculationInput struct {
	Income        decimal.Decimal `json:"income"`
	Period        Period          `json:"period"`
	TaxpayerClass TaxpayerClass   `json:"taxpayer_class"`
}

// SliceContribution is the tax raised by one bracket
type SliceContribution struct {
	BracketIndex int             `json:"bracket_index"`
	TaxableSlice decimal.Decimal `json:"taxable_slice"`
	TaxFromSlice decimal.Decimal `json:"tax_from_slice"`
}

// CalculationResult is the outcome of one computation. At most one is pending per session.
type CalculationResult struct {
	ID                   string              `json:"id"`
	Input                CalculationInput    `json:"input"`
	TaxType              string              `json:"tax_type"`
	RulesetVersion       string              `json:"ruleset_version"`
	TaxPayable           decimal.Decimal     `json:"tax_payable"`
	EffectiveRatePercent decimal.Decimal     `json:"effective_rate_percent"`
	Breakdown            []SliceContribution `json:"per_bracket_breakdown"`
	Saved                bool                `json:"saved"`
	RecordID             string              `json:"record_id,omitempty"`
	CalculatedAt         time.Time           `json:"calculated_at"`
}

// SubmitRecordRequest is the body of POST /tax/compute/{userId}
type SubmitRecordRequest struct {
	TaxType     string      `json:"taxType"`
	TaxYear     int         `json:"taxYear"`
	TotalIncome json.Number `json:"totalIncome"`
	TaxAmount   json.Number `json:"taxAmount"`
	Month       string      `json:"month"`
}

// SubmitRequest builds the record API payload for a result
func (r *CalculationResult) SubmitRequest() SubmitRecordRequest {
	return SubmitRecordRequest{
		TaxType:     r.TaxType,
		TaxYear:     r.Input.Period.Year,
		TotalIncome: json.Number(r.Input.Income.String()),
		TaxAmount:   json.Number(r.TaxPayable.String()),
		Month:       r.Input.Period.Month,
	}
}
