package service

import (
	"context"
	"fmt"

	"taxtracker/internal/model"
	"taxtracker/internal/session"
	"taxtracker/internal/websocket"

	"go.uber.org/zap"
)

// AccountAPI is the part of the remote API that manages accounts
type AccountAPI interface {
	SignIn(ctx context.Context, creds model.Credentials) (model.UpstreamLoginResponse, error)
	SignUp(ctx context.Context, class model.TaxpayerClass, req model.SignUpRequest) (string, error)
	UpdateProfile(ctx context.Context, id model.Identity, update model.ProfileUpdate) error
	UpdateReminderPreference(ctx context.Context, id model.Identity, enabled bool) error
}

// --- DTOs ---

type ReminderPreferenceResponse struct {
	Enabled bool `json:"enabled"`
}

// --- Interface ---

type SessionService interface {
	Login(ctx context.Context, creds model.Credentials) (model.Identity, error)
	Signup(ctx context.Context, accountType string, req model.SignUpRequest) (string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) model.Identity
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.Identity, error)
	ReminderEnabled(ctx context.Context) ReminderPreferenceResponse
	SetReminder(ctx context.Context, enabled bool) (ReminderPreferenceResponse, error)
}

type sessionService struct {
	api    AccountAPI
	store  *session.Store
	events EventPublisher
	log    *zap.Logger
}

func NewSessionService(api AccountAPI, store *session.Store, events EventPublisher, log *zap.Logger) SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &sessionService{api: api, store: store, events: events, log: log}
}

// --- Implementation ---

// Login signs in against the remote API and replaces the stored identity
func (s *sessionService) Login(ctx context.Context, creds model.Credentials) (model.Identity, error) {
	resp, err := s.api.SignIn(ctx, creds)
	if err != nil {
		return model.Identity{}, err
	}

	candidate := model.NewIdentity(resp)
	if !candidate.Authenticated() {
		return model.Identity{}, ErrIncompleteLogin
	}

	identity, err := s.store.SetIdentity(resp)
	if err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

// Signup registers an account. The account stays unauthenticated until the
// user verifies the email and logs in.
func (s *sessionService) Signup(ctx context.Context, accountType string, req model.SignUpRequest) (string, error) {
	class, ok := model.ParseTaxpayerClass(accountType)
	if !ok {
		return "", fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, accountType)
	}
	if class == model.TaxpayerBusiness && req.BusinessType == "" {
		return "", fmt.Errorf("%w: business type is required for business accounts", ErrInvalidInput)
	}

	message, err := s.api.SignUp(ctx, class, req)
	if err != nil {
		return "", err
	}
	if err := s.store.RememberSignup(req.Email, class); err != nil {
		s.log.Warn("failed to remember signup", zap.Error(err))
	}
	if message == "" {
		message = "Account created. Please verify your email."
	}
	return message, nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	userID := s.store.Identity().UserID
	if err := s.store.ClearIdentity(); err != nil {
		return err
	}
	if s.events != nil && userID != "" {
		s.events.Publish(websocket.EventSessionEnded, map[string]string{"user_id": userID})
	}
	return nil
}

func (s *sessionService) Me(ctx context.Context) model.Identity {
	return s.store.Identity()
}

// UpdateProfile changes the remote profile, then the local display name
func (s *sessionService) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.Identity, error) {
	identity := s.store.Identity()
	if !identity.Authenticated() {
		return model.Identity{}, ErrNotAuthenticated
	}
	if update.Fullname == "" {
		return model.Identity{}, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}

	if err := s.api.UpdateProfile(ctx, identity, update); err != nil {
		return model.Identity{}, err
	}

	extra := model.Fields{}
	if update.AnnualIncomeRange != "" {
		extra["annualIncomeRange"] = update.AnnualIncomeRange
	}
	if update.TIN != "" {
		extra["tin"] = update.TIN
	}
	if err := s.store.UpdateProfile(update.Fullname, extra); err != nil {
		return model.Identity{}, err
	}
	return s.store.Identity(), nil
}

func (s *sessionService) ReminderEnabled(ctx context.Context) ReminderPreferenceResponse {
	return ReminderPreferenceResponse{Enabled: s.store.ReminderEnabled()}
}

// SetReminder stores the preference locally and mirrors it to the remote API
// when signed in. A remote failure is returned after the local write.
func (s *sessionService) SetReminder(ctx context.Context, enabled bool) (ReminderPreferenceResponse, error) {
	if err := s.store.SetReminderEnabled(enabled); err != nil {
		return ReminderPreferenceResponse{}, err
	}
	resp := ReminderPreferenceResponse{Enabled: enabled}

	identity := s.store.Identity()
	if !identity.Authenticated() {
		return resp, nil
	}
	if err := s.api.UpdateReminderPreference(ctx, identity, enabled); err != nil {
		s.log.Warn("failed to sync reminder preference", zap.Bool("enabled", enabled), zap.Error(err))
		return resp, err
	}
	return resp, nil
}
