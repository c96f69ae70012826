// Package bootstrap assembles the stores, clients and evaluator from the
// loaded settings and environment.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"urlguard/internal/auth"
	"urlguard/internal/blacklist"
	"urlguard/internal/config"
	"urlguard/internal/database"
	"urlguard/internal/guard"
	"urlguard/internal/reputation"
	"urlguard/internal/support"
	"urlguard/internal/verdictcache"
	"urlguard/internal/virustotal"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Secrets are read from the environment, never from settings.json.
type Secrets struct {
	VirusTotalAPIKey  string
	GoogleSheetAPIKey string
	JWTSecret         string
}

func SecretsFromEnv() Secrets {
	return Secrets{
		VirusTotalAPIKey:  support.GetEnv("VIRUSTOTAL_API_KEY", ""),
		GoogleSheetAPIKey: support.GetEnv("GOOGLE_SHEET_API_KEY", ""),
		JWTSecret:         support.GetEnv("JWT_SECRET", ""),
	}
}

type Components struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Blacklist   *blacklist.Store
	Syncer      *blacklist.Syncer
	Cache       verdictcache.Store
	Remote      *virustotal.Client
	Evaluator   *reputation.Evaluator
	Interceptor *guard.Interceptor
	Auth        *auth.Authenticator
}

type Option func(*options)

type options struct {
	dbOptions []database.Option
	redis     *redis.Client
	skipRedis bool
}

// WithDatabaseOptions forwards options to database.SetupDB.
func WithDatabaseOptions(opts ...database.Option) Option {
	return func(o *options) {
		o.dbOptions = append(o.dbOptions, opts...)
	}
}

// WithRedisClient uses client instead of connecting through REDIS_URL.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) {
		o.redis = client
		o.skipRedis = true
	}
}

func Setup(ctx context.Context, cfg config.Config, secrets Secrets, opts ...Option) (*Components, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.SetupDB(o.dbOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	c := &Components{DB: db, Redis: o.redis}
	if !o.skipRedis {
		client, err := support.NewRedisClient(ctx)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}
		c.Redis = client
	}

	c.Blacklist = blacklist.NewStore(db)
	if err := c.Blacklist.Load(ctx); err != nil {
		log.Warn("Could not hydrate blacklist from database, starting empty", "error", err)
	}

	source, err := newBlacklistSource(cfg.Blacklist, secrets.GoogleSheetAPIKey)
	if err != nil {
		c.Close()
		return nil, err
	}
	if source != nil {
		syncOpts := []blacklist.SyncerOption{
			blacklist.WithInterval(config.GetBlacklistRefreshInterval()),
			blacklist.WithIntervalUpdates(config.BlacklistIntervalUpdates()),
		}
		if c.Redis != nil {
			syncOpts = append(syncOpts, blacklist.WithLeaderLock(c.Redis))
		}
		c.Syncer = blacklist.NewSyncer(c.Blacklist, source, syncOpts...)
	}

	c.Cache, err = newVerdictCache(cfg.Cache.Backend, db, c.Redis)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Remote = newRemoteClient(cfg.Remote, secrets.VirusTotalAPIKey)
	if !c.Remote.Enabled() {
		log.Warn("VIRUSTOTAL_API_KEY not set, remote reputation checks are disabled")
	}

	c.Evaluator = reputation.NewEvaluator(c.Blacklist, c.Cache, c.Remote)

	overrideTTL := config.DurationOr(cfg.Guard.OverrideTTL, guard.DefaultOverrideTTL)
	warningTTL := config.DurationOr(cfg.Guard.WarningTTL, guard.DefaultWarningTTL)
	var overrides guard.OverrideStore = guard.NewMemoryOverrides(overrideTTL)
	var warnings guard.WarningStore = guard.NewMemoryWarnings(warningTTL)
	if c.Redis != nil {
		overrides = guard.NewRedisOverrides(c.Redis, overrideTTL)
		warnings = guard.NewRedisWarnings(c.Redis, warningTTL)
	}
	c.Interceptor = guard.NewInterceptor(c.Evaluator, overrides, warnings, cfg.Guard.WarningPageURL)

	c.Auth = auth.NewAuthenticator(secrets.JWTSecret)
	if secrets.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, admin endpoints will reject every request")
	}

	return c, nil
}

func (c *Components) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("error closing redis client", "error", err)
		}
	}
	if err := database.Close(c.DB); err != nil {
		log.Warn("error closing database", "error", err)
	}
}

func newBlacklistSource(cfg config.BlacklistConfig, sheetAPIKey string) (blacklist.Source, error) {
	switch cfg.Source {
	case config.BlacklistSourceSheet:
		if cfg.SheetID == "" {
			log.Warn("blacklist.sheet_id not set, blacklist synchronization is disabled")
			return nil, nil
		}
		return &blacklist.SheetSource{SheetID: cfg.SheetID, APIKey: sheetAPIKey, Range: cfg.SheetRange}, nil
	case config.BlacklistSourceCSV:
		return &blacklist.CSVSource{URL: cfg.CSVURL}, nil
	case config.BlacklistSourceFile:
		return &blacklist.FileSource{Path: cfg.FilePath}, nil
	case config.BlacklistSourceNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown blacklist source %q", cfg.Source)
	}
}

func newVerdictCache(backend string, db *gorm.DB, client *redis.Client) (verdictcache.Store, error) {
	databaseStore := verdictcache.NewDatabaseStore(db)

	switch backend {
	case config.CacheBackendDatabase, "":
		return databaseStore, nil
	case config.CacheBackendRedis, config.CacheBackendTiered:
		if client == nil {
			return nil, errors.New("cache backend " + backend + " requires REDIS_URL")
		}
		redisStore := verdictcache.NewRedisStore(client, verdictcache.DefaultRedisPrefix)
		if backend == config.CacheBackendRedis {
			return redisStore, nil
		}
		return verdictcache.NewTiered(redisStore, databaseStore), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func newRemoteClient(cfg config.RemoteConfig, apiKey string) *virustotal.Client {
	return virustotal.NewClient(virustotal.Config{
		BaseURL:           cfg.BaseURL,
		APIKey:            apiKey,
		MaxWait:           config.DurationOr(cfg.MaxWait, virustotal.DefaultMaxWait),
		PollStep:          config.DurationOr(cfg.PollStep, virustotal.DefaultPollStep),
		MaxPoll:           config.DurationOr(cfg.MaxPoll, virustotal.DefaultMaxPoll),
		ThrottleFloor:     config.DurationOr(cfg.ThrottleFloor, virustotal.DefaultThrottleFloor),
		GrowthFactor:      cfg.GrowthFactor,
		HeadStart:         config.DurationOr(cfg.HeadStart, virustotal.DefaultHeadStart),
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
}
