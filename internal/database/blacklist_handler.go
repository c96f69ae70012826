package database

import (
	"context"
	"time"

	"urlguard/internal/domain"

	"gorm.io/gorm"
)

const (
	blacklistInsertBatchSize = 500
)

// ReplaceBlacklistEntries swaps the full blacklist table for entries inside a
// single transaction. Entries must already be normalized and unique by domain.
func ReplaceBlacklistEntries(ctx context.Context, db *gorm.DB, entries []domain.BlacklistEntry) (int, error) {
	if db == nil {
		return 0, storageErr("replace blacklist", errNotInitialised)
	}
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	now := time.Now().UTC()
	records := make([]domain.BlacklistEntry, 0, len(entries))
	for _, entry := range entries {
		entry.ID = 0
		if entry.SyncedAt.IsZero() {
			entry.SyncedAt = now
		}
		records = append(records, entry)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&domain.BlacklistEntry{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(&records, blacklistInsertBatchSize).Error
	})
	if err != nil {
		return 0, storageErr("replace blacklist", err)
	}

	return len(records), nil
}

// ListBlacklistEntries returns every stored entry ordered by domain.
func ListBlacklistEntries(ctx context.Context, db *gorm.DB) ([]domain.BlacklistEntry, error) {
	if db == nil {
		return nil, storageErr("list blacklist", errNotInitialised)
	}
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var entries []domain.BlacklistEntry
	if err := db.Order("domain ASC").Find(&entries).Error; err != nil {
		return nil, storageErr("list blacklist", err)
	}
	return entries, nil
}

// CountBlacklistEntries returns the number of stored entries.
func CountBlacklistEntries(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, storageErr("count blacklist", errNotInitialised)
	}
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var count int64
	if err := db.Model(&domain.BlacklistEntry{}).Count(&count).Error; err != nil {
		return 0, storageErr("count blacklist", err)
	}
	return count, nil
}
