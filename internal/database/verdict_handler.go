package database

import (
	"context"
	"errors"
	"time"

	"urlguard/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetVerdict loads the verdict stored under key. found is false when no row exists.
func GetVerdict(ctx context.Context, db *gorm.DB, key string) (record *domain.VerdictRecord, found bool, err error) {
	if db == nil {
		return nil, false, storageErr("get verdict", errNotInitialised)
	}
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var row domain.VerdictRecord
	err = db.Where("cache_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("get verdict", err)
	}
	return &row, true, nil
}

// UpsertVerdict writes record, replacing every column of an existing row with the same key.
func UpsertVerdict(ctx context.Context, db *gorm.DB, record domain.VerdictRecord) error {
	if db == nil {
		return storageErr("put verdict", errNotInitialised)
	}
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	if record.StoredAt.IsZero() {
		record.StoredAt = time.Now().UTC()
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err != nil {
		return storageErr("put verdict", err)
	}
	return nil
}

// CountVerdicts returns the number of cached verdicts.
func CountVerdicts(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, storageErr("count verdicts", errNotInitialised)
	}
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var count int64
	if err := db.Model(&domain.VerdictRecord{}).Count(&count).Error; err != nil {
		return 0, storageErr("count verdicts", err)
	}
	return count, nil
}
