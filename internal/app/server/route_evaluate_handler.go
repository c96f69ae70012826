package server

import (
	"errors"
	"net/http"
	"strings"

	"urlguard/internal/guard"
)

type urlRequest struct {
	URL      string `json:"url"`
	FinalURL string `json:"finalUrl,omitempty"`
}

func (s *Server) readURL(w http.ResponseWriter, r *http.Request) (urlRequest, bool) {
	var req urlRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, "url is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) evaluateURL(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Evaluator.Evaluate(r.Context(), req.URL))
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Interceptor.Navigate(r.Context(), req.URL))
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Interceptor.Download(r.Context(), req.URL, req.FinalURL))
}

func (s *Server) grantOverride(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readURL(w, r)
	if !ok {
		return
	}
	if err := s.deps.Interceptor.GrantOverride(r.Context(), req.URL); err != nil {
		writeError(w, "Could not store override", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getWarning(w http.ResponseWriter, r *http.Request) {
	warning, err := s.deps.Interceptor.Warning(r.Context(), r.PathValue("id"))
	if errors.Is(err, guard.ErrWarningNotFound) {
		writeError(w, "Warning not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "Could not load warning", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, warning)
}
