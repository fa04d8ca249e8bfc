package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxtracker/internal/metrics"
	"taxtracker/internal/model"
	"taxtracker/internal/repository"
	"taxtracker/internal/session"
	"taxtracker/internal/taxengine"
	"taxtracker/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type CalculateRequest struct {
	Income string `json:"income" binding:"required"` // decimal string, thousands separators allowed
	Month  string `json:"month" binding:"required"`  // English month name
	Year   int    `json:"year" binding:"required"`
}

const (
	minTaxYear = 2000
	maxTaxYear = 2100
)

// --- Interface ---

type CalculationService interface {
	Calculate(ctx context.Context, req CalculateRequest) (*model.CalculationResult, error)
	Pending(ctx context.Context) (*model.CalculationResult, error)
	Discard(ctx context.Context) error
	SubmitPending(ctx context.Context) (SubmissionOutcome, error)
}

type calculationService struct {
	rules   repository.RulesetRepository
	store   *session.Store
	submit  *RecordSync
	events  EventPublisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewCalculationService(
	rules repository.RulesetRepository,
	store *session.Store,
	submit *RecordSync,
	events EventPublisher,
	m *metrics.Metrics,
	log *zap.Logger,
) CalculationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &calculationService{
		rules:   rules,
		store:   store,
		submit:  submit,
		events:  events,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// --- Implementation ---

// Calculate computes tax for the signed-in user's class and stashes the result
// as the pending calculation, replacing any earlier one.
func (s *calculationService) Calculate(ctx context.Context, req CalculateRequest) (*model.CalculationResult, error) {
	identity := s.store.Identity()
	class := identity.TaxpayerClass

	input, err := parseCalculateRequest(req, class)
	if err != nil {
		s.count(class, "invalid")
		return nil, err
	}

	rs, err := s.rules.FindActive(class, input.Period.Year)
	if err != nil {
		s.count(class, "error")
		s.log.Warn("ruleset catalog has no entry for the requested year",
			zap.String("class", class.String()), zap.Int("year", input.Period.Year), zap.Error(err))
		return nil, err
	}

	result, err := taxengine.Compute(input, *rs)
	if err != nil {
		s.count(class, "error")
		return nil, err
	}
	result.ID = uuid.NewString()
	result.CalculatedAt = s.now().UTC()

	if err := s.store.StashPending(&result); err != nil {
		return nil, fmt.Errorf("failed to keep calculation: %w", err)
	}
	s.submit.Retain(result.ID)
	s.count(class, "ok")

	s.log.Info("tax calculated",
		zap.String("calculation_id", result.ID),
		zap.String("ruleset", result.RulesetVersion),
		zap.String("period", input.Period.String()))
	if s.events != nil {
		s.events.Publish(websocket.EventCalculationOK, map[string]any{
			"calculation_id": result.ID,
			"tax_payable":    result.TaxPayable.String(),
		})
	}
	return &result, nil
}

func (s *calculationService) Pending(ctx context.Context) (*model.CalculationResult, error) {
	result, ok := s.store.Pending()
	if !ok {
		return nil, ErrNoPendingCalculation
	}
	return result, nil
}

// Discard drops the pending calculation ("calculate another")
func (s *calculationService) Discard(ctx context.Context) error {
	if err := s.store.ClearPending(); err != nil {
		return err
	}
	s.submit.Retain("")
	return nil
}

// SubmitPending saves the pending calculation to the record API. The error is
// only set when there is nothing to submit; submission failures are reported
// in the outcome.
func (s *calculationService) SubmitPending(ctx context.Context) (SubmissionOutcome, error) {
	result, ok := s.store.Pending()
	if !ok {
		return SubmissionOutcome{}, ErrNoPendingCalculation
	}
	return s.submit.SubmitOnce(ctx, result, s.store.Identity()), nil
}

// --- Helpers ---

func parseCalculateRequest(req CalculateRequest, class model.TaxpayerClass) (model.CalculationInput, error) {
	raw := strings.NewReplacer(",", "", " ", "", "_", "").Replace(req.Income)
	income, err := decimal.NewFromString(raw)
	if err != nil {
		return model.CalculationInput{}, fmt.Errorf("%w: income %q is not a number", ErrInvalidInput, req.Income)
	}
	if !income.IsPositive() {
		return model.CalculationInput{}, fmt.Errorf("%w: please enter a valid income amount", ErrInvalidInput)
	}

	month, ok := model.ParseMonth(req.Month)
	if !ok {
		return model.CalculationInput{}, fmt.Errorf("%w: unknown month %q", ErrInvalidInput, req.Month)
	}
	if req.Year < minTaxYear || req.Year > maxTaxYear {
		return model.CalculationInput{}, fmt.Errorf("%w: year %d out of range", ErrInvalidInput, req.Year)
	}

	return model.CalculationInput{
		Income:        income,
		Period:        model.Period{Month: month.String(), Year: req.Year},
		TaxpayerClass: class,
	}, nil
}

func (s *calculationService) count(class model.TaxpayerClass, result string) {
	if s.metrics != nil {
		s.metrics.Calculations.WithLabelValues(class.String(), result).Inc()
	}
}
