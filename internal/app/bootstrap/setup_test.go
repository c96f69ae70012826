package bootstrap

import (
	"context"
	"fmt"
	"testing"

	"urlguard/internal/blacklist"
	"urlguard/internal/config"
	"urlguard/internal/database"
	"urlguard/internal/verdictcache"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return db
}

func TestSetupWiresComponents(t *testing.T) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	cfg.Blacklist.Source = config.BlacklistSourceCSV
	cfg.Blacklist.CSVURL = "https://feeds.example/list.csv"

	components, err := Setup(context.Background(), cfg, Secrets{VirusTotalAPIKey: "vt-key", JWTSecret: "s"},
		WithDatabaseOptions(database.WithExistingDB(openTestDB(t))),
		WithRedisClient(nil),
	)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(components.Close)

	if components.Syncer == nil {
		t.Fatal("syncer not configured for csv source")
	}
	if !components.Remote.Enabled() {
		t.Fatal("remote client should be enabled with an API key")
	}
	if _, ok := components.Cache.(*verdictcache.DatabaseStore); !ok {
		t.Fatalf("cache = %T, want *verdictcache.DatabaseStore", components.Cache)
	}
	if components.Evaluator == nil || components.Interceptor == nil || components.Auth == nil {
		t.Fatalf("components incomplete: %+v", components)
	}

	result := components.Evaluator.Evaluate(context.Background(), "not a url")
	if !result.Safe {
		t.Fatalf("malformed url result = %+v", result)
	}
}

func TestSetupWithoutRedisRejectsRedisCache(t *testing.T) {
	cfg, _ := config.DefaultConfig()
	cfg.Cache.Backend = config.CacheBackendTiered

	_, err := Setup(context.Background(), cfg, Secrets{},
		WithDatabaseOptions(database.WithExistingDB(openTestDB(t))),
		WithRedisClient(nil),
	)
	if err == nil {
		t.Fatal("expected error for tiered cache without redis")
	}
}

func TestNewBlacklistSource(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.BlacklistConfig
		wantNil bool
		want    string
		wantErr bool
	}{
		{name: "sheet", cfg: config.BlacklistConfig{Source: config.BlacklistSourceSheet, SheetID: "abc"}, want: "sheet:abc"},
		{name: "sheet without id", cfg: config.BlacklistConfig{Source: config.BlacklistSourceSheet}, wantNil: true},
		{name: "csv", cfg: config.BlacklistConfig{Source: config.BlacklistSourceCSV, CSVURL: "https://f.example/l.csv?k=1"}, want: "csv:https://f.example"},
		{name: "file", cfg: config.BlacklistConfig{Source: config.BlacklistSourceFile, FilePath: "/tmp/list.csv"}, want: "file:/tmp/list.csv"},
		{name: "none", cfg: config.BlacklistConfig{Source: config.BlacklistSourceNone}, wantNil: true},
		{name: "unknown", cfg: config.BlacklistConfig{Source: "gopher"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := newBlacklistSource(tc.cfg, "key")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newBlacklistSource: %v", err)
			}
			if tc.wantNil {
				if src != nil {
					t.Fatalf("source = %T, want nil", src)
				}
				return
			}
			if src.Name() != tc.want {
				t.Fatalf("Name = %q, want %q", src.Name(), tc.want)
			}
		})
	}

	src, _ := newBlacklistSource(config.BlacklistConfig{Source: config.BlacklistSourceSheet, SheetID: "abc"}, "key")
	if sheet, ok := src.(*blacklist.SheetSource); !ok || sheet.APIKey != "key" {
		t.Fatalf("sheet source = %+v", src)
	}
}

func TestNewRemoteClientEnabledByKey(t *testing.T) {
	if newRemoteClient(config.RemoteConfig{}, "").Enabled() {
		t.Fatal("client without key should be disabled")
	}
	if !newRemoteClient(config.RemoteConfig{MaxWait: config.Timer{Minutes: 1}}, "k").Enabled() {
		t.Fatal("client with key should be enabled")
	}
}
