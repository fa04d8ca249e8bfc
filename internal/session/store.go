// Package session keeps the canonical identity and the pending calculation
// on top of a key-value Storage whose field names have changed over time.
package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"taxtracker/internal/model"
	"taxtracker/internal/storage"

	"go.uber.org/zap"
)

// Storage keys. The scalar keys are legacy mirrors still read as fallbacks.
const (
	KeyUser        = "user"
	KeyUserID      = "userId"
	KeyUserName    = "userName"
	KeyAccountType = "accountType"
	KeyUserType    = "userType"
	KeyAuthToken   = "authToken"
	KeyToken       = "token"
	KeyEmail       = "email"
	KeyPending     = "taxData"
	KeyReminder    = "taxReminderEnabled"
)

var identityKeys = []string{
	KeyUser, KeyUserID, KeyUserName, KeyAccountType, KeyUserType, KeyAuthToken, KeyToken, KeyEmail,
}

// Store is the single owner of session state. Reads never fail; unreadable
// values degrade to defaults.
type Store struct {
	storage storage.Storage
	log     *zap.Logger
	mu      sync.Mutex // serializes read-modify-write sequences
}

func NewStore(s storage.Storage, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{storage: s, log: log}
}

// Identity resolves the canonical identity from the structured record and the
// legacy scalar keys. It always returns a complete shape.
func (s *Store) Identity() model.Identity {
	return resolveIdentity(s.storage, s.log)
}

// AuthToken returns the stored session token, if any
func (s *Store) AuthToken() string {
	return s.Identity().AuthToken
}

// SetIdentity normalizes an upstream login payload and fully replaces every
// stored identity key with it. Logging in as a different user drops the
// previous user's pending calculation.
func (s *Store) SetIdentity(raw model.UpstreamLoginResponse) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := model.NewIdentity(raw)
	previous := resolveIdentity(s.storage, s.log)

	record := model.Fields{
		"id":          id.UserID,
		"name":        id.DisplayName,
		"accountType": id.TaxpayerClass.String(),
	}
	if id.Email != "" {
		record["email"] = id.Email
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to encode user record: %w", err)
	}

	err = storage.Apply(s.storage, func(tx storage.Storage) error {
		if err := removeAll(tx, identityKeys); err != nil {
			return err
		}
		if previous.UserID != "" && previous.UserID != id.UserID {
			if err := tx.Remove(KeyPending); err != nil {
				return err
			}
		}
		return setAll(tx, map[string]string{
			KeyUser:        string(encoded),
			KeyUserID:      id.UserID,
			KeyUserName:    id.DisplayName,
			KeyAccountType: id.TaxpayerClass.String(),
			KeyAuthToken:   id.AuthToken,
			KeyToken:       id.AuthToken,
			KeyEmail:       id.Email,
		})
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to store identity: %w", err)
	}

	s.log.Info("session identity stored",
		zap.String("user_id", id.UserID),
		zap.String("taxpayer_class", id.TaxpayerClass.String()))
	return id, nil
}

// ClearIdentity wipes the session wholesale: identity, pending calculation and
// preferences. A following Identity call returns the default shape.
func (s *Store) ClearIdentity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := append([]string{KeyPending, KeyReminder}, identityKeys...)
	if err := storage.Apply(s.storage, func(tx storage.Storage) error {
		return removeAll(tx, keys)
	}); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// RememberSignup keeps the email and account type of a pending verification
func (s *Store) RememberSignup(email string, class model.TaxpayerClass) error {
	return storage.Apply(s.storage, func(tx storage.Storage) error {
		return setAll(tx, map[string]string{
			KeyEmail:       email,
			KeyAccountType: class.String(),
		})
	})
}

// UpdateProfile merges profile fields into the stored user record. The new
// full name takes precedence over every other name spelling.
func (s *Store) UpdateProfile(fullname string, extra model.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := readRecord(s.storage, s.log)
	if record == nil {
		record = model.Fields{}
	}
	for k, v := range extra {
		record[k] = v
	}
	if fullname != "" {
		record["fullname"] = fullname
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}
	return storage.Apply(s.storage, func(tx storage.Storage) error {
		if err := tx.Set(KeyUser, string(encoded)); err != nil {
			return err
		}
		if fullname == "" {
			return nil
		}
		return tx.Set(KeyUserName, fullname)
	})
}

// ReminderEnabled reports the stored tax reminder preference
func (s *Store) ReminderEnabled() bool {
	v, ok := s.storage.Get(KeyReminder)
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(v)
	return err == nil && enabled
}

func (s *Store) SetReminderEnabled(enabled bool) error {
	return s.storage.Set(KeyReminder, strconv.FormatBool(enabled))
}

func resolveIdentity(st storage.Storage, log *zap.Logger) model.Identity {
	record := readRecord(st, log)
	get := func(key string) string {
		v, _ := st.Get(key)
		return v
	}

	return model.Identity{
		UserID:        model.ResolveUserID(record, get(KeyUserID)),
		DisplayName:   model.ResolveDisplayName(record, get(KeyUserName)),
		TaxpayerClass: model.ResolveTaxpayerClass(record, get(KeyAccountType), get(KeyUserType)),
		AuthToken:     model.FirstNonEmpty(get(KeyAuthToken), get(KeyToken)),
		Email:         model.ResolveEmail(record, get(KeyEmail)),
	}
}

// readRecord returns the structured user record, or nil when it is missing or corrupt
func readRecord(st storage.Storage, log *zap.Logger) model.Fields {
	raw, ok := st.Get(KeyUser)
	if !ok || raw == "" {
		return nil
	}
	record, err := model.ParseFields([]byte(raw))
	if err != nil {
		log.Debug("ignoring unreadable user record", zap.Error(err))
		return nil
	}
	return record
}

func removeAll(st storage.Storage, keys []string) error {
	for _, k := range keys {
		if err := st.Remove(k); err != nil {
			return err
		}
	}
	return nil
}

// setAll writes non-empty values; empty ones are left absent
func setAll(st storage.Storage, values map[string]string) error {
	for k, v := range values {
		if v == "" {
			continue
		}
		if err := st.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
