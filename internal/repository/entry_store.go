package repository

import (
	"context"
	"errors"
	"fmt"

	"taxtracker/internal/model"
	"taxtracker/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryStore is a storage.Storage kept in the storage_entries table. Each
// namespace is an independent session.
type EntryStore struct {
	db        *gorm.DB
	tx        TransactionManager
	namespace string
	ctx       context.Context
	log       *zap.Logger
}

var _ storage.Transactional = (*EntryStore)(nil)

func NewEntryStore(db *gorm.DB, namespace string, log *zap.Logger) *EntryStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &EntryStore{
		db:        db,
		tx:        NewTransactionManager(db),
		namespace: namespace,
		ctx:       context.Background(),
		log:       log,
	}
}

func (s *EntryStore) Get(key string) (string, bool) {
	var entry model.StorageEntry
	err := GetDB(s.ctx, s.db).
		Where("namespace = ? AND key = ?", s.namespace, key).
		First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return entry.Value, true
}

func (s *EntryStore) Set(key, value string) error {
	entry := model.StorageEntry{Namespace: s.namespace, Key: key, Value: value}
	err := GetDB(s.ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *EntryStore) Remove(key string) error {
	err := GetDB(s.ctx, s.db).
		Where("namespace = ? AND key = ?", s.namespace, key).
		Delete(&model.StorageEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

func (s *EntryStore) Atomically(fn func(tx storage.Storage) error) error {
	return s.tx.RunInTx(s.ctx, func(txCtx context.Context) error {
		scoped := *s
		scoped.ctx = txCtx
		return fn(&scoped)
	})
}
