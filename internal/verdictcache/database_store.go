package verdictcache

import (
	"context"

	"urlguard/internal/database"
	"urlguard/internal/domain"

	"gorm.io/gorm"
)

// DatabaseStore keeps verdicts in the verdict_records table.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Get(ctx context.Context, key string) (*domain.VerdictRecord, error) {
	record, found, err := database.GetVerdict(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *DatabaseStore) Put(ctx context.Context, record domain.VerdictRecord) error {
	return database.UpsertVerdict(ctx, s.db, record)
}
