package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"taxtracker/internal/client"
	"taxtracker/internal/metrics"
	"taxtracker/internal/model"
	"taxtracker/internal/websocket"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=../mocks/mock_record_api.go -package=mocks taxtracker/internal/service RecordAPI

// RecordAPI is the part of the remote API the submission path needs
type RecordAPI interface {
	SubmitRecord(ctx context.Context, id model.Identity, req model.SubmitRecordRequest) (string, error)
}

// PendingStore is where submitted results are flagged as saved
type PendingStore interface {
	MarkPendingSaved(id, recordID string) error
	ClearIdentity() error
}

// EventPublisher receives record events; websocket.Hub implements it
type EventPublisher interface {
	Publish(kind string, payload any)
}

type OutcomeStatus string

const (
	OutcomeSubmitted        OutcomeStatus = "submitted"
	OutcomeAlreadySubmitted OutcomeStatus = "already_submitted"
	OutcomeFailed           OutcomeStatus = "failed"
)

type FailureReason string

const (
	ReasonNetwork         FailureReason = "network"
	ReasonRejected        FailureReason = "rejected"
	ReasonUnauthorized    FailureReason = "unauthorized"
	ReasonTimeout         FailureReason = "timeout"
	ReasonUnauthenticated FailureReason = "unauthenticated"
	ReasonInvalid         FailureReason = "invalid"
)

// SubmissionOutcome is the tagged result of SubmitOnce
type SubmissionOutcome struct {
	Status   OutcomeStatus `json:"status"`
	RecordID string        `json:"record_id,omitempty"`
	Reason   FailureReason `json:"reason,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// RecordSync submits a calculation result to the record API at most once
type RecordSync struct {
	api     RecordAPI
	store   PendingStore
	events  EventPublisher
	metrics *metrics.Metrics
	log     *zap.Logger
	timeout time.Duration

	flight    singleflight.Group
	mu        sync.Mutex
	submitted map[string]string // result id -> record id
	reported  map[string]struct{}
}

type RecordSyncOption func(*RecordSync)

// WithSubmitTimeout bounds each submission; zero leaves it to the caller's context
func WithSubmitTimeout(d time.Duration) RecordSyncOption {
	return func(s *RecordSync) { s.timeout = d }
}

func WithEvents(p EventPublisher) RecordSyncOption {
	return func(s *RecordSync) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) RecordSyncOption {
	return func(s *RecordSync) { s.metrics = m }
}

func NewRecordSync(api RecordAPI, store PendingStore, log *zap.Logger, opts ...RecordSyncOption) *RecordSync {
	if log == nil {
		log = zap.NewNop()
	}
	s := &RecordSync{
		api:       api,
		store:     store,
		log:       log,
		submitted: make(map[string]string),
		reported:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitOnce sends result to the record API unless it was already sent. On
// success result is flagged saved in place and in the session store. Concurrent
// calls for the same result share one network call. It never returns an error;
// failures are reported in the outcome.
func (s *RecordSync) SubmitOnce(ctx context.Context, result *model.CalculationResult, id model.Identity) SubmissionOutcome {
	outcome := s.submitOnce(ctx, result, id)
	s.observe(outcome)
	return outcome
}

func (s *RecordSync) submitOnce(ctx context.Context, result *model.CalculationResult, id model.Identity) SubmissionOutcome {
	if result == nil || result.ID == "" {
		return failed(ReasonInvalid, "no calculation to submit")
	}
	if result.Saved {
		return SubmissionOutcome{Status: OutcomeAlreadySubmitted, RecordID: result.RecordID}
	}
	if recordID, ok := s.lookup(result.ID); ok {
		markSaved(result, recordID)
		return SubmissionOutcome{Status: OutcomeAlreadySubmitted, RecordID: recordID}
	}
	if !id.Authenticated() {
		return failed(ReasonUnauthenticated, "please log in to save your calculation")
	}

	req := result.SubmitRequest()
	v, _, shared := s.flight.Do(result.ID, func() (any, error) {
		return s.send(ctx, result.ID, id, req), nil
	})
	outcome := v.(SubmissionOutcome)
	if shared && outcome.Status == OutcomeSubmitted && !s.claimReport(result.ID) {
		// another caller already reported this submission
		outcome.Status = OutcomeAlreadySubmitted
	}
	if outcome.Status != OutcomeFailed {
		markSaved(result, outcome.RecordID)
	}
	return outcome
}

func (s *RecordSync) send(ctx context.Context, resultID string, id model.Identity, req model.SubmitRecordRequest) SubmissionOutcome {
	// a previous flight may have finished between lookup and Do
	if recordID, ok := s.lookup(resultID); ok {
		return SubmissionOutcome{Status: OutcomeAlreadySubmitted, RecordID: recordID}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	recordID, err := s.api.SubmitRecord(ctx, id, req)
	if s.metrics != nil {
		s.metrics.SubmitLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return s.failure(ctx, resultID, err)
	}

	s.mu.Lock()
	s.submitted[resultID] = recordID
	s.mu.Unlock()

	if err := s.store.MarkPendingSaved(resultID, recordID); err != nil {
		s.log.Warn("failed to flag pending calculation as saved", zap.String("calculation_id", resultID), zap.Error(err))
	}
	if s.events != nil {
		s.events.Publish(websocket.EventRecordSaved, map[string]any{
			"calculation_id": resultID,
			"record_id":      recordID,
			"month":          req.Month,
			"tax_year":       req.TaxYear,
		})
	}
	s.log.Info("calculation submitted",
		zap.String("calculation_id", resultID),
		zap.String("record_id", recordID),
		zap.String("user_id", id.UserID))
	return SubmissionOutcome{Status: OutcomeSubmitted, RecordID: recordID}
}

func (s *RecordSync) failure(ctx context.Context, resultID string, err error) SubmissionOutcome {
	var apiErr *client.APIError
	var outcome SubmissionOutcome
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		if clearErr := s.store.ClearIdentity(); clearErr != nil {
			s.log.Error("failed to clear expired session", zap.Error(clearErr))
		}
		outcome = failed(ReasonUnauthorized, client.UserMessage(err))
	case errors.Is(err, client.ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = failed(ReasonTimeout, client.UserMessage(client.ErrTimeout))
	case errors.As(err, &apiErr):
		outcome = failed(ReasonRejected, client.UserMessage(err))
	default:
		outcome = failed(ReasonNetwork, client.NetworkErrorMessage)
	}

	s.log.Warn("calculation submission failed",
		zap.String("calculation_id", resultID),
		zap.String("reason", string(outcome.Reason)),
		zap.Error(err))
	return outcome
}

// Retain forgets every submission except the one for keep. Only the pending
// calculation can be submitted, so older ids are never looked up again.
func (s *RecordSync) Retain(keep string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.submitted {
		if id != keep {
			delete(s.submitted, id)
		}
	}
	for id := range s.reported {
		if id != keep {
			delete(s.reported, id)
		}
	}
}

func (s *RecordSync) lookup(resultID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordID, ok := s.submitted[resultID]
	return recordID, ok
}

// claimReport hands the "submitted" status to exactly one of the callers that
// shared a flight
func (s *RecordSync) claimReport(resultID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.reported[resultID]; taken {
		return false
	}
	s.reported[resultID] = struct{}{}
	return true
}

func (s *RecordSync) observe(outcome SubmissionOutcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.Submissions.WithLabelValues(string(outcome.Status), string(outcome.Reason)).Inc()
}

func markSaved(result *model.CalculationResult, recordID string) {
	result.Saved = true
	if recordID != "" {
		result.RecordID = recordID
	}
}

func failed(reason FailureReason, message string) SubmissionOutcome {
	return SubmissionOutcome{Status: OutcomeFailed, Reason: reason, Message: message}
}
