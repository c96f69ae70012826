package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"urlguard/internal/app/bootstrap"
	"urlguard/internal/app/server"
	"urlguard/internal/config"
	"urlguard/internal/metrics"
	"urlguard/internal/support"
)

const defaultBackendPort = 8082

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	backendPortFlag := flag.Int("backend-port", defaultBackendPort, "Port for API server")
	debugFlag := flag.Bool("debug", support.GetEnvBool("DEBUG", false), "Enable debug logging")
	settingsFlag := flag.String("settings", "data/settings.json", "Path to the settings file")
	flag.Parse()

	config.SetSettingsPath(*settingsFlag)

	if *debugFlag {
		log.SetLevel(log.DebugLevel)
	}

	backendPort := resolvePort("BACKEND_PORT", "PORT", *backendPortFlag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.ReadSettings(); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	components, err := bootstrap.Setup(ctx, config.GetConfig(), bootstrap.SecretsFromEnv())
	if err != nil {
		return err
	}
	defer components.Close()

	metrics.Register(prometheus.DefaultRegisterer)

	if components.Redis != nil {
		config.EnableRedisSynchronization(ctx, components.Redis)
	}
	if components.Syncer != nil {
		go components.Syncer.Run(ctx)
	} else {
		log.Warn("No blacklist source configured, serving the stored blacklist only", "domains", components.Blacklist.Size())
	}

	srv := server.NewServer(server.Deps{
		Evaluator:   components.Evaluator,
		Interceptor: components.Interceptor,
		Blacklist:   components.Blacklist,
		Syncer:      components.Syncer,
		Auth:        components.Auth,
		Gatherer:    prometheus.DefaultGatherer,
		DB:          components.DB,
	})

	return server.OpenRoutes(ctx, backendPort, srv.Handler())
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
