package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"taxtracker/internal/model"
	"taxtracker/internal/session"
	"taxtracker/internal/websocket"
	"taxtracker/pkg/pagination"

	"go.uber.org/zap"
)

// HistoryAPI is the part of the remote API that serves saved records
type HistoryAPI interface {
	ListRecords(ctx context.Context, id model.Identity) ([]model.TaxRecord, error)
	TaxSummary(ctx context.Context, id model.Identity) (model.Fields, error)
	IncomeExpenseSummary(ctx context.Context, id model.Identity) (model.Fields, error)
	MarkPaid(ctx context.Context, id model.Identity, recordID string, req model.MarkPaidRequest) error
	ListReminders(ctx context.Context, id model.Identity) ([]model.Reminder, error)
}

// --- DTOs ---

type RecordFilter struct {
	Month  string `form:"month"`
	Year   int    `form:"year"`
	Status string `form:"status"` // paid, unpaid or empty for all
}

type RemindersResponse struct {
	Reminders []model.Reminder `json:"reminders"`
	Unread    int              `json:"unread"`
}

const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// --- Interface ---

type HistoryService interface {
	Records(ctx context.Context, filter RecordFilter, page pagination.Params) (pagination.Page[model.TaxRecord], error)
	Summary(ctx context.Context) (model.TaxSummary, error)
	RemoteSummary(ctx context.Context) (model.Fields, error)
	IncomeExpenseSummary(ctx context.Context) (model.Fields, error)
	MarkPaid(ctx context.Context, recordID string) (model.TaxRecord, error)
	Reminders(ctx context.Context) (RemindersResponse, error)
}

type historyService struct {
	api    HistoryAPI
	store  *session.Store
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewHistoryService(api HistoryAPI, store *session.Store, events EventPublisher, log *zap.Logger) HistoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &historyService{api: api, store: store, events: events, log: log, now: time.Now}
}

// --- Implementation ---

// Records lists the user's saved records, newest first, filtered and paginated locally
func (s *historyService) Records(ctx context.Context, filter RecordFilter, page pagination.Params) (pagination.Page[model.TaxRecord], error) {
	if err := validateFilter(filter); err != nil {
		return pagination.Page[model.TaxRecord]{}, err
	}
	records, err := s.records(ctx)
	if err != nil {
		return pagination.Page[model.TaxRecord]{}, err
	}

	filtered := slices.DeleteFunc(records, func(r model.TaxRecord) bool {
		return !filter.matches(r)
	})
	slices.SortStableFunc(filtered, newestFirst)
	return pagination.Slice(filtered, page), nil
}

func (s *historyService) Summary(ctx context.Context) (model.TaxSummary, error) {
	records, err := s.records(ctx)
	if err != nil {
		return model.TaxSummary{}, err
	}
	return model.Summarize(records), nil
}

// RemoteSummary returns the tax summary computed by the remote API
func (s *historyService) RemoteSummary(ctx context.Context) (model.Fields, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	return s.api.TaxSummary(ctx, identity)
}

func (s *historyService) IncomeExpenseSummary(ctx context.Context) (model.Fields, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	return s.api.IncomeExpenseSummary(ctx, identity)
}

// MarkPaid records a payment of the full tax amount, dated today
func (s *historyService) MarkPaid(ctx context.Context, recordID string) (model.TaxRecord, error) {
	identity, err := s.identity()
	if err != nil {
		return model.TaxRecord{}, err
	}
	records, err := s.api.ListRecords(ctx, identity)
	if err != nil {
		return model.TaxRecord{}, err
	}
	idx := slices.IndexFunc(records, func(r model.TaxRecord) bool { return r.ID == recordID })
	if idx < 0 {
		return model.TaxRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	record := records[idx]
	if record.IsPaid {
		return record, nil
	}

	today := s.now()
	req := model.MarkPaidRequest{
		Amount: record.TaxAmount.String(),
		PaidOn: today.Format(time.DateOnly),
	}
	if err := s.api.MarkPaid(ctx, identity, recordID, req); err != nil {
		return model.TaxRecord{}, err
	}

	record.IsPaid = true
	paidOn := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	record.PaidOn = &paidOn

	s.log.Info("tax record marked paid", zap.String("record_id", recordID), zap.String("amount", req.Amount))
	if s.events != nil {
		s.events.Publish(websocket.EventRecordPaid, map[string]any{"record_id": recordID, "amount": req.Amount})
	}
	return record, nil
}

// Reminders lists reminders newest first with the count of open ones
func (s *historyService) Reminders(ctx context.Context) (RemindersResponse, error) {
	identity, err := s.identity()
	if err != nil {
		return RemindersResponse{}, err
	}
	reminders, err := s.api.ListReminders(ctx, identity)
	if err != nil {
		return RemindersResponse{}, err
	}

	slices.SortStableFunc(reminders, func(a, b model.Reminder) int {
		return compareTimes(b.CreatedAt, a.CreatedAt)
	})
	unread := 0
	for _, r := range reminders {
		if !r.IsCompleted {
			unread++
		}
	}
	return RemindersResponse{Reminders: reminders, Unread: unread}, nil
}

// --- Helpers ---

func (s *historyService) identity() (model.Identity, error) {
	identity := s.store.Identity()
	if !identity.Authenticated() {
		return model.Identity{}, ErrNotAuthenticated
	}
	return identity, nil
}

func (s *historyService) records(ctx context.Context) ([]model.TaxRecord, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	return s.api.ListRecords(ctx, identity)
}

func validateFilter(f RecordFilter) error {
	switch strings.ToLower(f.Status) {
	case "", StatusPaid, StatusUnpaid:
	default:
		return fmt.Errorf("%w: status must be paid or unpaid", ErrInvalidInput)
	}
	if f.Month != "" {
		if _, ok := model.ParseMonth(f.Month); !ok {
			return fmt.Errorf("%w: unknown month %q", ErrInvalidInput, f.Month)
		}
	}
	return nil
}

func (f RecordFilter) matches(r model.TaxRecord) bool {
	if f.Year != 0 && r.TaxYear != f.Year {
		return false
	}
	if f.Month != "" {
		want, _ := model.ParseMonth(f.Month)
		got, ok := model.ParseMonth(r.Month)
		if !ok || got != want {
			return false
		}
	}
	switch strings.ToLower(f.Status) {
	case StatusPaid:
		return r.IsPaid
	case StatusUnpaid:
		return !r.IsPaid
	}
	return true
}

// newestFirst orders by tax period, then creation time
func newestFirst(a, b model.TaxRecord) int {
	if c := cmp.Compare(b.TaxYear, a.TaxYear); c != 0 {
		return c
	}
	am, _ := model.ParseMonth(a.Month)
	bm, _ := model.ParseMonth(b.Month)
	if c := cmp.Compare(bm, am); c != 0 {
		return c
	}
	return compareTimes(b.CreatedAt, a.CreatedAt)
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
