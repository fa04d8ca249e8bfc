package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRecord is a persisted calculation as returned by the record API
type TaxRecord struct {
	ID          string          `json:"id"`
	Month       string          `json:"month"`
	TaxYear     int             `json:"tax_year"`
	TaxType     string          `json:"tax_type"`
	TotalIncome decimal.Decimal `json:"total_income"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	IsPaid      bool            `json:"is_paid"`
	PaidOn      *time.Time      `json:"paid_on"`
	CreatedAt   *time.Time      `json:"created_at"`
}

// Period renders "Month Year", falling back to the creation date
func (r TaxRecord) Period() string {
	if r.Month != "" && r.TaxYear > 0 {
		return Period{Month: r.Month, Year: r.TaxYear}.String()
	}
	if r.CreatedAt != nil {
		return r.CreatedAt.Format("January 2006")
	}
	return "N/A"
}

// NewTaxRecord normalizes one upstream record across its historical field names
func NewTaxRecord(f Fields) TaxRecord {
	year := int(f.Decimal("taxYear", "year").IntPart())
	return TaxRecord{
		ID:          f.String("_id", "id"),
		Month:       f.String("month"),
		TaxYear:     year,
		TaxType:     f.String("taxType", "tax_type"),
		TotalIncome: f.Decimal("totalIncome", "income", "turnover"),
		TaxAmount:   f.Decimal("taxAmount", "taxPayable"),
		IsPaid:      f.Bool("isPaid", "paid"),
		PaidOn:      f.Time("paidOn", "paidAt"),
		CreatedAt:   f.Time("createdAt", "date"),
	}
}

// TaxSummary aggregates a user's records
type TaxSummary struct {
	TotalRecords int             `json:"total_records"`
	PaidCount    int             `json:"paid_count"`
	UnpaidCount  int             `json:"unpaid_count"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	UnpaidAmount decimal.Decimal `json:"unpaid_amount"`
}

// Summarize counts paid and unpaid records and totals their tax amounts
func Summarize(records []TaxRecord) TaxSummary {
	s := TaxSummary{TotalRecords: len(records)}
	for _, r := range records {
		if r.IsPaid {
			s.PaidCount++
			s.PaidAmount = s.PaidAmount.Add(r.TaxAmount)
		} else {
			s.UnpaidCount++
			s.UnpaidAmount = s.UnpaidAmount.Add(r.TaxAmount)
		}
	}
	return s
}

// MarkPaidRequest is the body of PATCH /tax/mark-paid/{userId}/{recordId}
type MarkPaidRequest struct {
	Amount string `json:"amount"`
	PaidOn string `json:"paidOn"` // YYYY-MM-DD
}

// Reminder is a tax reminder notification
type Reminder struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   *time.Time `json:"created_at"`
}

// NewReminder normalizes one upstream reminder
func NewReminder(f Fields) Reminder {
	title := f.String("title")
	if title == "" {
		title = "Tax Reminder"
	}
	return Reminder{
		ID:          f.String("_id", "id"),
		Title:       title,
		Message:     f.String("message"),
		Type:        f.String("type"),
		IsCompleted: f.Bool("isCompleted"),
		CreatedAt:   f.Time("createdAt", "date"),
	}
}
