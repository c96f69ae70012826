package server

import (
	"errors"
	"net/http"

	"urlguard/internal/blacklist"
	"urlguard/internal/urlkey"

	"github.com/charmbracelet/log"
)

func (s *Server) syncBlacklist(w http.ResponseWriter, r *http.Request) {
	if s.deps.Syncer == nil {
		writeError(w, "No blacklist source configured", http.StatusServiceUnavailable)
		return
	}

	outcome, err := s.deps.Syncer.Sync(r.Context())
	if err != nil {
		log.Error("Manual blacklist sync failed", "error", err)
		writeError(w, "Blacklist sync failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) lookupBlacklist(w http.ResponseWriter, r *http.Request) {
	host := urlkey.NormalizeHost(r.PathValue("domain"))
	if host == "" {
		writeError(w, "Invalid domain", http.StatusBadRequest)
		return
	}

	entry, err := s.deps.Blacklist.Lookup(r.Context(), host)
	if errors.Is(err, blacklist.ErrNotFound) {
		writeError(w, "Domain is not blacklisted", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "Blacklist lookup failed", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
