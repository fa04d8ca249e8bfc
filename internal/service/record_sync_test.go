package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taxtracker/internal/client"
	"taxtracker/internal/metrics"
	"taxtracker/internal/mocks"
	"taxtracker/internal/model"
	"taxtracker/internal/session"
	"taxtracker/internal/storage"
	"taxtracker/internal/websocket"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordedEvent struct {
	kind    string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(kind string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{kind, payload})
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

var ada = model.Identity{UserID: "u1", DisplayName: "Ada", TaxpayerClass: model.TaxpayerIndividual, AuthToken: "tok-1"}

func pendingResult() *model.CalculationResult {
	return &model.CalculationResult{
		ID:      "calc-1",
		TaxType: model.TaxTypePIT,
		Input: model.CalculationInput{
			Income:        decimal.NewFromInt(1000000),
			Period:        model.Period{Month: "January", Year: 2026},
			TaxpayerClass: model.TaxpayerIndividual,
		},
		TaxPayable:           decimal.NewFromInt(30000),
		EffectiveRatePercent: decimal.NewFromInt(3),
	}
}

func wantRequest() model.SubmitRecordRequest {
	return model.SubmitRecordRequest{
		TaxType: "PIT", TaxYear: 2026, TotalIncome: "1000000", TaxAmount: "30000", Month: "January",
	}
}

func newSync(t *testing.T, api RecordAPI, opts ...RecordSyncOption) (*RecordSync, *session.Store) {
	t.Helper()
	store := session.NewStore(storage.NewMemory(), nil)
	return NewRecordSync(api, store, nil, opts...), store
}

func TestSubmitOnce_SubmitsThenShortCircuits(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	api.EXPECT().SubmitRecord(gomock.Any(), ada, wantRequest()).Return("rec-1", nil).Times(1)

	events := &fakePublisher{}
	m := metrics.New(nil)
	rs, store := newSync(t, api, WithEvents(events), WithMetrics(m))

	result := pendingResult()
	require.NoError(t, store.StashPending(result))

	first := rs.SubmitOnce(context.Background(), result, ada)
	assert.Equal(t, SubmissionOutcome{Status: OutcomeSubmitted, RecordID: "rec-1"}, first)
	assert.True(t, result.Saved)
	assert.Equal(t, "rec-1", result.RecordID)

	stored, ok := store.Pending()
	require.True(t, ok)
	assert.True(t, stored.Saved, "the session copy is flagged too")

	second := rs.SubmitOnce(context.Background(), result, ada)
	assert.Equal(t, OutcomeAlreadySubmitted, second.Status)
	assert.Equal(t, "rec-1", second.RecordID)

	// a fresh copy of the same unsaved result is recognised by id
	third := rs.SubmitOnce(context.Background(), pendingResult(), ada)
	assert.Equal(t, OutcomeAlreadySubmitted, third.Status)

	assert.Equal(t, []string{websocket.EventRecordSaved}, events.kinds())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("submitted", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("already_submitted", "")))
}

func TestSubmitOnce_SavedResultMakesNoCall(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t) // no expectations: any call fails the test
	rs, _ := newSync(t, api)

	result := pendingResult()
	result.Saved = true
	result.RecordID = "rec-0"

	out := rs.SubmitOnce(context.Background(), result, ada)
	assert.Equal(t, SubmissionOutcome{Status: OutcomeAlreadySubmitted, RecordID: "rec-0"}, out)
}

func TestSubmitOnce_Unauthenticated(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	rs, _ := newSync(t, api)

	for _, id := range []model.Identity{
		model.DefaultIdentity(),
		{UserID: "u1"},
		{AuthToken: "tok-1"},
	} {
		out := rs.SubmitOnce(context.Background(), pendingResult(), id)
		assert.Equal(t, OutcomeFailed, out.Status)
		assert.Equal(t, ReasonUnauthenticated, out.Reason)
	}
}

func TestSubmitOnce_MissingResult(t *testing.T) {
	rs, _ := newSync(t, mocks.NewMockRecordAPIForTest(t))

	out := rs.SubmitOnce(context.Background(), nil, ada)
	assert.Equal(t, ReasonInvalid, out.Reason)
}

func TestSubmitOnce_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason FailureReason
	}{
		{"rejected", &client.APIError{StatusCode: 400, Message: "duplicate record"}, ReasonRejected},
		{"network", errors.Join(client.ErrNetwork, errors.New("connection refused")), ReasonNetwork},
		{"timeout", client.ErrTimeout, ReasonTimeout},
		{"deadline", context.DeadlineExceeded, ReasonTimeout},
		{"unauthorized", client.ErrUnauthorized, ReasonUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := mocks.NewMockRecordAPIForTest(t)
			api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).Return("", tt.err)
			rs, _ := newSync(t, api)

			result := pendingResult()
			out := rs.SubmitOnce(context.Background(), result, ada)
			assert.Equal(t, OutcomeFailed, out.Status)
			assert.Equal(t, tt.reason, out.Reason)
			assert.NotEmpty(t, out.Message)
			assert.False(t, result.Saved, "a failed submission leaves the result retryable")
		})
	}
}

func TestSubmitOnce_RejectedKeepsServerMessage(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &client.APIError{StatusCode: 422, Message: "taxYear is required"})
	rs, _ := newSync(t, api)

	out := rs.SubmitOnce(context.Background(), pendingResult(), ada)
	assert.Equal(t, "taxYear is required", out.Message)
}

func TestSubmitOnce_UnauthorizedClearsSession(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).Return("", client.ErrUnauthorized)
	rs, store := newSync(t, api)

	_, err := store.SetIdentity(model.UpstreamLoginResponse{Token: "tok-1", User: model.Fields{"id": "u1"}})
	require.NoError(t, err)
	require.True(t, store.Identity().Authenticated())

	out := rs.SubmitOnce(context.Background(), pendingResult(), store.Identity())
	assert.Equal(t, ReasonUnauthorized, out.Reason)
	assert.False(t, store.Identity().Authenticated())
}

func TestSubmitOnce_RetryAfterFailure(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	gomock.InOrder(
		api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).Return("", client.ErrNetwork),
		api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).Return("rec-2", nil),
	)
	rs, _ := newSync(t, api)

	result := pendingResult()
	assert.Equal(t, OutcomeFailed, rs.SubmitOnce(context.Background(), result, ada).Status)
	assert.Equal(t, OutcomeSubmitted, rs.SubmitOnce(context.Background(), result, ada).Status)
}

func TestSubmitOnce_SubmitTimeout(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ model.Identity, _ model.SubmitRecordRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
	rs, _ := newSync(t, api, WithSubmitTimeout(20*time.Millisecond))

	out := rs.SubmitOnce(context.Background(), pendingResult(), ada)
	assert.Equal(t, ReasonTimeout, out.Reason)
}

func TestSubmitOnce_ConcurrentCallsShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	api := mocks.NewMockRecordAPIForTest(t)
	api.EXPECT().SubmitRecord(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, model.Identity, model.SubmitRecordRequest) (string, error) {
			<-release
			return "rec-1", nil
		}).Times(1)
	rs, _ := newSync(t, api)

	const callers = 8
	outcomes := make([]SubmissionOutcome, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = rs.SubmitOnce(context.Background(), pendingResult(), ada)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	submitted := 0
	for _, out := range outcomes {
		require.NotEqual(t, OutcomeFailed, out.Status)
		assert.Equal(t, "rec-1", out.RecordID)
		if out.Status == OutcomeSubmitted {
			submitted++
		}
	}
	assert.Equal(t, 1, submitted)
}

func TestRetain_ForgetsReplacedSubmissions(t *testing.T) {
	api := mocks.NewMockRecordAPIForTest(t)
	api.EXPECT().SubmitRecord(gomock.Any(), ada, gomock.Any()).Return("rec-1", nil)
	api.EXPECT().SubmitRecord(gomock.Any(), ada, gomock.Any()).Return("rec-2", nil)
	rs, _ := newSync(t, api)

	first := pendingResult()
	second := pendingResult()
	second.ID = "calc-2"
	require.Equal(t, OutcomeSubmitted, rs.SubmitOnce(context.Background(), first, ada).Status)
	require.Equal(t, OutcomeSubmitted, rs.SubmitOnce(context.Background(), second, ada).Status)
	assert.Len(t, rs.submitted, 2)

	rs.Retain("calc-2")
	_, ok := rs.lookup("calc-1")
	assert.False(t, ok)
	recordID, ok := rs.lookup("calc-2")
	assert.True(t, ok)
	assert.Equal(t, "rec-2", recordID)

	rs.Retain("")
	assert.Empty(t, rs.submitted)
	assert.Empty(t, rs.reported)
}
