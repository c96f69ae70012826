package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	redisConfigKey     = "urlguard:config:settings"
	redisConfigChannel = "urlguard:config:updates"
	redisOpTimeout     = 5 * time.Second
)

var redisSync struct {
	mu     sync.RWMutex
	client redis.UniversalClient
	ctx    context.Context
}

// EnableRedisSynchronization shares settings between instances. The stored
// copy wins on startup; later local changes are published to every instance.
func EnableRedisSynchronization(ctx context.Context, client redis.UniversalClient) {
	if client == nil {
		log.Warn("Config synchronization disabled: redis client is nil")
		return
	}

	redisSync.mu.Lock()
	if redisSync.client != nil {
		redisSync.mu.Unlock()
		return
	}
	redisSync.client = client
	redisSync.ctx = ctx
	redisSync.mu.Unlock()

	loaded, err := loadConfigFromRedis(ctx, client)
	if err != nil {
		log.Error("Config sync: failed to load configuration from redis", "error", err)
	}
	if !loaded {
		if err := publishConfig(GetConfig()); err != nil {
			log.Error("Config sync: failed to publish configuration to redis", "error", err)
		}
	}

	go subscribeToConfigUpdates(ctx, client)
}

func decodeSharedConfig(payload []byte) (Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode shared configuration: %w", err)
	}
	return cfg, nil
}

func loadConfigFromRedis(ctx context.Context, client redis.UniversalClient) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	payload, err := client.Get(opCtx, redisConfigKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	cfg, err := decodeSharedConfig(payload)
	if err != nil {
		return true, err
	}
	return true, applyConfigUpdate(cfg, configUpdateOptions{persistToFile: true, source: "redis"})
}

func subscribeToConfigUpdates(ctx context.Context, client redis.UniversalClient) {
	pubsub := client.Subscribe(ctx, redisConfigChannel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			log.Error("Config sync: subscription error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		cfg, err := decodeSharedConfig([]byte(msg.Payload))
		if err != nil {
			log.Error("Config sync: invalid payload", "error", err)
			continue
		}
		if err := applyConfigUpdate(cfg, configUpdateOptions{persistToFile: true, source: "redis"}); err != nil {
			log.Error("Config sync: failed to apply remote update", "error", err)
		}
	}
}

func publishConfig(cfg Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return broadcastConfigUpdate(payload)
}

func broadcastConfigUpdate(payload []byte) error {
	redisSync.mu.RLock()
	client := redisSync.client
	ctx := redisSync.ctx
	redisSync.mu.RUnlock()

	if client == nil || len(payload) == 0 {
		return nil
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := client.Set(opCtx, redisConfigKey, payload, 0).Err(); err != nil {
		return err
	}
	return client.Publish(opCtx, redisConfigChannel, payload).Err()
}
