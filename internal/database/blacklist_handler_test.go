package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"urlguard/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupBlacklistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	db, err = SetupDB(WithExistingDB(db))
	if err != nil {
		t.Fatalf("setup database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}

func TestReplaceBlacklistEntries_ReplacesWholeSet(t *testing.T) {
	db := setupBlacklistTestDB(t)
	ctx := context.Background()

	first := []domain.BlacklistEntry{
		{Domain: "evil.com", Category: "Phishing", Description: "fake bank"},
		{Domain: "bad.org", Category: "Malware", Description: "dropper"},
	}
	if n, err := ReplaceBlacklistEntries(ctx, db, first); err != nil || n != 2 {
		t.Fatalf("ReplaceBlacklistEntries(first) = %d, %v; want 2, nil", n, err)
	}

	second := []domain.BlacklistEntry{
		{Domain: "other.net", Category: "Scam", Description: "crypto doubler"},
	}
	if n, err := ReplaceBlacklistEntries(ctx, db, second); err != nil || n != 1 {
		t.Fatalf("ReplaceBlacklistEntries(second) = %d, %v; want 1, nil", n, err)
	}

	entries, err := ListBlacklistEntries(ctx, db)
	if err != nil {
		t.Fatalf("ListBlacklistEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Domain != "other.net" || entries[0].Category != "Scam" {
		t.Fatalf("entries after second replace = %+v, want only other.net", entries)
	}
	if entries[0].SyncedAt.IsZero() {
		t.Fatal("SyncedAt was not populated")
	}
}

func TestReplaceBlacklistEntries_Idempotent(t *testing.T) {
	db := setupBlacklistTestDB(t)
	ctx := context.Background()

	list := []domain.BlacklistEntry{
		{Domain: "a.example", Category: "Malware", Description: "x"},
		{Domain: "b.example", Category: "Phishing", Description: "y"},
	}

	for i := 0; i < 2; i++ {
		if _, err := ReplaceBlacklistEntries(ctx, db, list); err != nil {
			t.Fatalf("ReplaceBlacklistEntries pass %d: %v", i, err)
		}
	}

	count, err := CountBlacklistEntries(ctx, db)
	if err != nil {
		t.Fatalf("CountBlacklistEntries: %v", err)
	}
	if count != int64(len(list)) {
		t.Fatalf("count = %d, want %d", count, len(list))
	}
}

func TestReplaceBlacklistEntries_EmptyClearsTable(t *testing.T) {
	db := setupBlacklistTestDB(t)
	ctx := context.Background()

	if _, err := ReplaceBlacklistEntries(ctx, db, []domain.BlacklistEntry{{Domain: "gone.example"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := ReplaceBlacklistEntries(ctx, db, nil); err != nil {
		t.Fatalf("ReplaceBlacklistEntries(nil): %v", err)
	}

	count, err := CountBlacklistEntries(ctx, db)
	if err != nil {
		t.Fatalf("CountBlacklistEntries: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestReplaceBlacklistEntries_DuplicateRollsBack(t *testing.T) {
	db := setupBlacklistTestDB(t)
	ctx := context.Background()

	seed := []domain.BlacklistEntry{{Domain: "kept.example", Category: "Malware"}}
	if _, err := ReplaceBlacklistEntries(ctx, db, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dupes := []domain.BlacklistEntry{{Domain: "dup.example"}, {Domain: "dup.example"}}
	_, err := ReplaceBlacklistEntries(ctx, db, dupes)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("ReplaceBlacklistEntries(dupes) error = %v, want *StorageError", err)
	}

	entries, err := ListBlacklistEntries(ctx, db)
	if err != nil {
		t.Fatalf("ListBlacklistEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Domain != "kept.example" {
		t.Fatalf("entries after failed replace = %+v, want the seeded set", entries)
	}
}

func TestBlacklistHandlersWithoutConnection(t *testing.T) {
	if _, err := ReplaceBlacklistEntries(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error without database")
	}
	if _, err := ListBlacklistEntries(context.Background(), nil); err == nil {
		t.Fatal("expected error without database")
	}
}
