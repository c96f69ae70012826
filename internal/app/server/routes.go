package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"urlguard/internal/auth"
	"urlguard/internal/blacklist"
	"urlguard/internal/domain"
	"urlguard/internal/guard"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	maxRequestBody  = 64 << 10
	shutdownTimeout = 10 * time.Second
)

type Evaluator interface {
	Evaluate(ctx context.Context, rawURL string) domain.EvaluationResult
}

// Deps are the components the HTTP API exposes. Syncer and DB may be nil.
type Deps struct {
	Evaluator   Evaluator
	Interceptor *guard.Interceptor
	Blacklist   *blacklist.Store
	Syncer      *blacklist.Syncer
	Auth        *auth.Authenticator
	Gatherer    prometheus.Gatherer
	DB          *gorm.DB
}

type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Auth == nil {
		deps.Auth = auth.NewAuthenticator("")
	}
	return &Server{deps: deps}
}

func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("POST /api/evaluate", s.evaluateURL)
	router.HandleFunc("POST /api/navigate", s.navigate)
	router.HandleFunc("POST /api/download", s.download)
	router.HandleFunc("POST /api/override", s.grantOverride)
	router.HandleFunc("GET /api/warnings/{id}", s.getWarning)

	router.Handle("POST /api/blacklist/sync", s.deps.Auth.IsAdmin(http.HandlerFunc(s.syncBlacklist)))
	router.HandleFunc("GET /api/blacklist/{domain}", s.lookupBlacklist)

	router.HandleFunc("GET /api/version", getVersion)
	router.HandleFunc("GET /health", s.health)
	router.Handle("GET /metrics", s.metricsHandler())

	return enableCORS(router)
}

// OpenRoutes serves handler on port until ctx is cancelled.
func OpenRoutes(ctx context.Context, port int, handler http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown incomplete", "error", err)
		}
	}()

	log.Infof("Starting urlguard backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
