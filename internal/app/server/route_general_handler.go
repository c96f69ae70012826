package server

import (
	"context"
	"net/http"
	"time"

	"urlguard/internal/database"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthStatus struct {
	Status           string `json:"status"`
	Database         string `json:"database,omitempty"`
	BlacklistEntries int    `json:"blacklistEntries"`
	StoredBlacklist  int64  `json:"storedBlacklist"`
	CachedVerdicts   int64  `json:"cachedVerdicts"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok"}
	if s.deps.Blacklist != nil {
		status.BlacklistEntries = s.deps.Blacklist.Size()
	}

	code := http.StatusOK
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := database.Ping(ctx, s.deps.DB); err != nil {
			status.Status = "degraded"
			status.Database = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status.Database = "ok"
			if count, err := database.CountBlacklistEntries(ctx, s.deps.DB); err == nil {
				status.StoredBlacklist = count
			}
			if count, err := database.CountVerdicts(ctx, s.deps.DB); err == nil {
				status.CachedVerdicts = count
			}
		}
	}

	writeJSON(w, code, status)
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})
}
