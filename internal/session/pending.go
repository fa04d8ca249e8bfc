package session

import (
	"encoding/json"
	"fmt"

	"taxtracker/internal/model"

	"go.uber.org/zap"
)

// StashPending stores result as the single pending calculation, replacing any previous one
func (s *Store) StashPending(result *model.CalculationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stashPending(result)
}

// Pending returns the pending calculation. A corrupt value reads as absent.
func (s *Store) Pending() (*model.CalculationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending()
}

// MarkPendingSaved flags the stored calculation as submitted. It is a no-op when
// the pending calculation has been replaced by another one in the meantime.
func (s *Store) MarkPendingSaved(id, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pending()
	if !ok || pending.ID != id {
		return nil
	}
	pending.Saved = true
	pending.RecordID = recordID
	return s.stashPending(pending)
}

// ClearPending drops the pending calculation
func (s *Store) ClearPending() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(KeyPending); err != nil {
		return fmt.Errorf("failed to clear pending calculation: %w", err)
	}
	return nil
}

// --- Helpers (callers hold s.mu) ---

func (s *Store) stashPending(result *model.CalculationResult) error {
	if result == nil {
		return nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode pending calculation: %w", err)
	}
	if err := s.storage.Set(KeyPending, string(encoded)); err != nil {
		return fmt.Errorf("failed to store pending calculation: %w", err)
	}
	return nil
}

func (s *Store) pending() (*model.CalculationResult, bool) {
	raw, ok := s.storage.Get(KeyPending)
	if !ok || raw == "" {
		return nil, false
	}
	var result model.CalculationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.log.Debug("ignoring unreadable pending calculation", zap.Error(err))
		return nil, false
	}
	return &result, true
}
