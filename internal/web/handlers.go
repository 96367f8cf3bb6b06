package web

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// handleManifest serves the PWA manifest from the current config snapshot.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}

	manifest := s.cfg.Current().PWA.Manifest
	w.Header().Set("Content-Type", "application/manifest+json")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method != http.MethodHead {
		w.Write(manifest)
	}
}

// handleFavicon answers favicon probes with an empty response so browser
// requests do not fall through to the landing handler.
func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports service liveness and the reachability of the
// backing stores. A degraded store turns the overall status to "degraded"
// but still returns 200; the process itself is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	stores := make(map[string]string)
	check := func(name string, p Pinger) {
		if p == nil {
			stores[name] = "disabled"
			return
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "store", name, "error", err)
			stores[name] = "unreachable"
			status = "degraded"
			return
		}
		stores[name] = "ok"
	}
	check("mongo", s.mongo)
	check("redis", s.redis)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"cloakingEnabled": s.cfg.Current().Cloaking.Enabled,
		"stores":          stores,
	})
}

// defaultRequestsLimit bounds /api/requests responses when no limit is given.
const defaultRequestsLimit = 50

// handleRequests returns recent audit records, newest first.
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := defaultRequestsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "audit_unavailable", "could not read audit records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(records),
		"requests": records,
	})
}
