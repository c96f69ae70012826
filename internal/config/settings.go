package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

const (
	CacheBackendDatabase = "database"
	CacheBackendRedis    = "redis"
	CacheBackendTiered   = "tiered"

	BlacklistSourceSheet = "sheet"
	BlacklistSourceCSV   = "csv"
	BlacklistSourceFile  = "file"
	BlacklistSourceNone  = "none"
)

type Config struct {
	Remote    RemoteConfig    `json:"remote"`
	Blacklist BlacklistConfig `json:"blacklist"`

	Cache struct {
		Backend string `json:"backend"`
	} `json:"cache"`

	Guard struct {
		WarningPageURL string `json:"warning_page_url"`
		WarningTTL     Timer  `json:"warning_ttl"`
		OverrideTTL    Timer  `json:"override_ttl"`
	} `json:"guard"`
}

type RemoteConfig struct {
	BaseURL           string  `json:"base_url"`
	MaxWait           Timer   `json:"max_wait"`
	PollStep          Timer   `json:"poll_step"`
	MaxPoll           Timer   `json:"max_poll"`
	ThrottleFloor     Timer   `json:"throttle_floor"`
	GrowthFactor      float64 `json:"growth_factor"`
	HeadStart         Timer   `json:"head_start"`
	RequestsPerMinute int     `json:"requests_per_minute"`
}

type BlacklistConfig struct {
	Source       string `json:"source"`
	SheetID      string `json:"sheet_id"`
	SheetRange   string `json:"sheet_range"`
	CSVURL       string `json:"csv_url"`
	FilePath     string `json:"file_path"`
	RefreshTimer Timer  `json:"refresh_timer"`
}

type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

var (
	//go:embed default_settings.json
	defaultConfig []byte

	settingsFilePath = "data/settings.json"

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	cfg, err := DefaultConfig()
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	configValue.Store(cfg)
	blacklistRefreshInterval.Store(calculateBlacklistRefreshInterval(cfg))
}

// SetSettingsPath changes the file ReadSettings and SetConfig use.
func SetSettingsPath(path string) {
	if path != "" {
		settingsFilePath = path
	}
}

// DefaultConfig decodes the embedded default settings.
func DefaultConfig() (Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfig, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadSettings loads data/settings.json, creating it from the embedded
// defaults when it does not exist yet.
func ReadSettings() error {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read settings file: %w", err)
		}

		log.Warn("Settings file not found, creating with default configuration", "path", settingsFilePath)
		if err := os.MkdirAll(filepath.Dir(settingsFilePath), 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
		if err := os.WriteFile(settingsFilePath, defaultConfig, 0o644); err != nil {
			return fmt.Errorf("write default settings: %w", err)
		}
		data = defaultConfig
	}

	newConfig, err := DefaultConfig()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &newConfig); err != nil {
		return fmt.Errorf("decode settings file: %w", err)
	}

	if err := applyConfigUpdate(newConfig, configUpdateOptions{source: "file"}); err != nil {
		return err
	}

	log.Debug("Settings file loaded successfully")
	return nil
}

func SetConfig(newConfig Config) error {
	return applyConfigUpdate(newConfig, configUpdateOptions{persistToFile: true, broadcast: true, source: "local"})
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case CacheBackendDatabase, CacheBackendRedis, CacheBackendTiered:
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of database, redis, tiered", c.Cache.Backend))
	}

	switch c.Blacklist.Source {
	case BlacklistSourceSheet, BlacklistSourceNone:
	case BlacklistSourceCSV:
		if c.Blacklist.CSVURL == "" {
			errs = append(errs, errors.New("blacklist.csv_url is required for the csv source"))
		}
	case BlacklistSourceFile:
		if c.Blacklist.FilePath == "" {
			errs = append(errs, errors.New("blacklist.file_path is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("blacklist.source %q is not one of sheet, csv, file, none", c.Blacklist.Source))
	}

	if c.Remote.GrowthFactor != 0 && c.Remote.GrowthFactor < 1 {
		errs = append(errs, fmt.Errorf("remote.growth_factor %v must be at least 1", c.Remote.GrowthFactor))
	}
	if c.Remote.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("remote.requests_per_minute must not be negative"))
	}

	return errors.Join(errs...)
}

type configUpdateOptions struct {
	persistToFile bool
	broadcast     bool
	source        string
}

func applyConfigUpdate(newConfig Config, opts configUpdateOptions) error {
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration from %s: %w", opts.source, err)
	}

	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	SetBetweenTime()

	var errs []error

	if opts.persistToFile {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			errs = append(errs, err)
		} else if err := os.WriteFile(settingsFilePath, data, 0o644); err != nil {
			log.Error("Error writing configuration to file", "error", err)
			errs = append(errs, err)
		}
	}

	if opts.broadcast {
		if err := publishConfig(newConfig); err != nil {
			log.Error("Error broadcasting configuration update", "error", err)
			errs = append(errs, err)
		}
	}

	log.Debug("Configuration applied", "source", opts.source)
	return errors.Join(errs...)
}

func GetConfig() Config {
	return configValue.Load().(Config)
}
