package session

import (
	"sync"
	"testing"
	"time"

	"taxtracker/internal/model"
	"taxtracker/internal/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return NewStore(mem, nil), mem
}

func login(user model.Fields) model.UpstreamLoginResponse {
	return model.UpstreamLoginResponse{Success: true, Token: "tok-1", User: user}
}

func TestIdentity_EmptyStorageReturnsDefaults(t *testing.T) {
	s, _ := newStore(t)

	assert.Equal(t, model.DefaultIdentity(), s.Identity())
}

func TestIdentity_CorruptUserRecordReadsAsAbsent(t *testing.T) {
	s, mem := newStore(t)
	require.NoError(t, mem.Set(KeyUser, "{not json"))

	got := s.Identity()
	assert.Equal(t, model.DefaultIdentity(), got)
}

func TestIdentity_LegacyScalarKeys(t *testing.T) {
	s, mem := newStore(t)
	require.NoError(t, mem.Set(KeyUserID, "u9"))
	require.NoError(t, mem.Set(KeyUserName, "Grace"))
	require.NoError(t, mem.Set(KeyUserType, "business"))
	require.NoError(t, mem.Set(KeyToken, "legacy-token"))

	got := s.Identity()
	assert.Equal(t, "u9", got.UserID)
	assert.Equal(t, "Grace", got.DisplayName)
	assert.Equal(t, model.TaxpayerBusiness, got.TaxpayerClass)
	assert.Equal(t, "legacy-token", got.AuthToken)
	assert.True(t, got.Authenticated())
}

func TestIdentity_RecordWinsOverScalars(t *testing.T) {
	s, mem := newStore(t)
	require.NoError(t, mem.Set(KeyUser, `{"_id":"u1","fullName":"Ada","role":"user","account_type":"business"}`))
	require.NoError(t, mem.Set(KeyUserID, "stale"))
	require.NoError(t, mem.Set(KeyAccountType, "individual"))

	got := s.Identity()
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Ada", got.DisplayName)
	// "user" is not a class, account_type is
	assert.Equal(t, model.TaxpayerBusiness, got.TaxpayerClass)
}

func TestSetIdentity_RoundTripAcrossSpellings(t *testing.T) {
	a, _ := newStore(t)
	b, _ := newStore(t)

	fromA, err := a.SetIdentity(login(model.Fields{"_id": "u1", "fullName": "Ada", "account_type": "business"}))
	require.NoError(t, err)
	fromB, err := b.SetIdentity(login(model.Fields{"id": "u1", "name": "Ada", "role": "business"}))
	require.NoError(t, err)

	if diff := cmp.Diff(fromA, fromB); diff != "" {
		t.Errorf("identities differ (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.Identity(), b.Identity()); diff != "" {
		t.Errorf("stored identities differ (-a +b):\n%s", diff)
	}
	assert.Equal(t, fromA, a.Identity(), "SetIdentity then Identity is stable")
}

func TestSetIdentity_ReplacesEveryKey(t *testing.T) {
	s, mem := newStore(t)
	require.NoError(t, mem.Set(KeyUserType, "business"))
	require.NoError(t, mem.Set(KeyUserName, "Old Name"))

	_, err := s.SetIdentity(login(model.Fields{"id": "u2", "email": "u2@example.com"}))
	require.NoError(t, err)

	got := s.Identity()
	assert.Equal(t, model.TaxpayerIndividual, got.TaxpayerClass, "stale userType must not leak into the new session")
	assert.Equal(t, model.DefaultDisplayName, got.DisplayName)
	assert.Equal(t, "u2@example.com", got.Email)
	_, ok := mem.Get(KeyUserType)
	assert.False(t, ok)
}

func TestSetIdentity_TokenNestedUnderData(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.SetIdentity(model.UpstreamLoginResponse{
		Success: true,
		Data: model.Fields{
			"token": "nested",
			"user":  map[string]any{"id": "u3"},
		},
	})
	require.NoError(t, err)

	got := s.Identity()
	assert.Equal(t, "u3", got.UserID)
	assert.Equal(t, "nested", got.AuthToken)
}

func TestSetIdentity_DifferentUserDropsPending(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.SetIdentity(login(model.Fields{"id": "u1"}))
	require.NoError(t, err)
	require.NoError(t, s.StashPending(&model.CalculationResult{ID: "calc-1"}))

	_, err = s.SetIdentity(login(model.Fields{"id": "u1"}))
	require.NoError(t, err)
	_, ok := s.Pending()
	assert.True(t, ok, "same user keeps the pending calculation")

	_, err = s.SetIdentity(login(model.Fields{"id": "u2"}))
	require.NoError(t, err)
	_, ok = s.Pending()
	assert.False(t, ok)
}

func TestClearIdentity(t *testing.T) {
	s, mem := newStore(t)
	_, err := s.SetIdentity(login(model.Fields{"id": "u1", "name": "Ada"}))
	require.NoError(t, err)
	require.NoError(t, s.StashPending(&model.CalculationResult{ID: "calc-1"}))
	require.NoError(t, s.SetReminderEnabled(true))

	require.NoError(t, s.ClearIdentity())

	assert.Equal(t, model.DefaultIdentity(), s.Identity())
	assert.False(t, s.ReminderEnabled())
	assert.Zero(t, mem.Len())
}

func TestPending_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	_, ok := s.Pending()
	assert.False(t, ok)

	result := &model.CalculationResult{
		ID:      "calc-1",
		TaxType: model.TaxTypePIT,
		Input: model.CalculationInput{
			Income:        decimal.NewFromInt(1000000),
			Period:        model.Period{Month: "January", Year: 2026},
			TaxpayerClass: model.TaxpayerIndividual,
		},
		TaxPayable:           decimal.NewFromInt(30000),
		EffectiveRatePercent: decimal.RequireFromString("3.00"),
		CalculatedAt:         time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.StashPending(result))

	got, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, "calc-1", got.ID)
	assert.True(t, got.TaxPayable.Equal(result.TaxPayable))
	assert.True(t, got.Input.Income.Equal(result.Input.Income))
	assert.Equal(t, "January 2026", got.Input.Period.String())
	assert.False(t, got.Saved)
}

func TestPending_CorruptReadsAsAbsent(t *testing.T) {
	s, mem := newStore(t)
	require.NoError(t, mem.Set(KeyPending, "[]garbage"))

	_, ok := s.Pending()
	assert.False(t, ok)
}

func TestMarkPendingSaved(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.StashPending(&model.CalculationResult{ID: "calc-1"}))

	require.NoError(t, s.MarkPendingSaved("other", "rec-x"))
	got, _ := s.Pending()
	assert.False(t, got.Saved, "a different id leaves the pending calculation untouched")

	require.NoError(t, s.MarkPendingSaved("calc-1", "rec-1"))
	got, _ = s.Pending()
	assert.True(t, got.Saved)
	assert.Equal(t, "rec-1", got.RecordID)

	require.NoError(t, s.ClearPending())
	_, ok := s.Pending()
	assert.False(t, ok)
}

// gatedStorage parks the first read of the pending key until release is closed
type gatedStorage struct {
	*storage.Memory
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (g *gatedStorage) Get(key string) (string, bool) {
	v, ok := g.Memory.Get(key)
	if key == KeyPending {
		g.once.Do(func() {
			close(g.reached)
			<-g.release
		})
	}
	return v, ok
}

func TestMarkPendingSaved_DoesNotOverwriteNewerStash(t *testing.T) {
	mem := storage.NewMemory()
	s := NewStore(mem, nil)
	require.NoError(t, s.StashPending(&model.CalculationResult{ID: "old"}))

	gated := &gatedStorage{Memory: mem, reached: make(chan struct{}), release: make(chan struct{})}
	s.storage = gated

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.MarkPendingSaved("old", "rec-1"))
	}()
	<-gated.reached

	stashed := make(chan struct{})
	go func() {
		defer wg.Done()
		assert.NoError(t, s.StashPending(&model.CalculationResult{ID: "new"}))
		close(stashed)
	}()

	select {
	case <-stashed:
		t.Fatal("stash completed while a mark-saved was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(gated.release)
	wg.Wait()

	got, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, "new", got.ID)
	assert.False(t, got.Saved)
}

func TestUpdateProfile(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.SetIdentity(login(model.Fields{"id": "u1", "name": "Ada"}))
	require.NoError(t, err)

	require.NoError(t, s.UpdateProfile("Ada Lovelace", model.Fields{"tin": "123"}))

	got := s.Identity()
	assert.Equal(t, "Ada Lovelace", got.DisplayName)
	assert.Equal(t, "u1", got.UserID)
}

func TestReminderPreference(t *testing.T) {
	s, mem := newStore(t)
	assert.False(t, s.ReminderEnabled())

	require.NoError(t, s.SetReminderEnabled(true))
	assert.True(t, s.ReminderEnabled())

	require.NoError(t, mem.Set(KeyReminder, "maybe"))
	assert.False(t, s.ReminderEnabled())
}

func TestRememberSignup(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.RememberSignup("ada@example.com", model.TaxpayerBusiness))

	got := s.Identity()
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, model.TaxpayerBusiness, got.TaxpayerClass)
	assert.False(t, got.Authenticated())
}
