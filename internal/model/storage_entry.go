package model

import "time"

// StorageEntry is one key of the persisted client session, namespaced so
// several sessions can share a table
type StorageEntry struct {
	Namespace string    `gorm:"type:varchar(64);primaryKey" json:"namespace"`
	Key       string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
