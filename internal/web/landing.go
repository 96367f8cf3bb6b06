package web

import (
	"net/http"
	"time"

	"github.com/shroudlabs/shroud/internal/audit"
	"github.com/shroudlabs/shroud/internal/cloak"
	"github.com/shroudlabs/shroud/internal/config"
	"github.com/shroudlabs/shroud/internal/render"
)

// handleLanding classifies the visitor and serves the page variant for the
// verdict. Classification, page selection and rate limiting all read the
// same config snapshot so a concurrent reload cannot mix settings.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}

	cfg := s.cfg.Current()
	ip := clientIP(r)
	userAgent := r.UserAgent()

	if blocked := s.throttle(cfg, ip); blocked {
		s.audit.Log(audit.Record{
			IP:         ip,
			UserAgent:  userAgent,
			URL:        r.URL.String(),
			Method:     r.Method,
			Blocked:    true,
			StatusCode: http.StatusTooManyRequests,
			Comment:    "rate limit exceeded",
		})
		writeErrorJSON(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
		return
	}

	result := s.engine.Analyze(r.Context(), ip, userAgent, cfg)

	page := cfg.Pages.Organic
	if result.Verdict == cloak.VerdictDecoy {
		page = cfg.Pages.Decoy
	}

	html, err := render.Page(page)
	status := http.StatusOK
	if err != nil {
		s.logger.Error("page render failed", "verdict", result.Verdict, "error", err)
		status = http.StatusInternalServerError
	}

	s.audit.Log(audit.Record{
		IP:         ip,
		UserAgent:  userAgent,
		URL:        r.URL.String(),
		Method:     r.Method,
		Verdict:    result.Verdict.String(),
		FromCache:  result.FromCache,
		StatusCode: status,
		Checks:     result.Checks,
		Comment:    result.Comment,
	})

	if err != nil {
		http.Error(w, "Internal server error", status)
		return
	}

	// Both variants must always reflect the latest classification, so
	// intermediaries and browsers are told not to cache the response.
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	for name, value := range page.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write([]byte(html))
	}
}

// throttle reports whether the request must be rejected under the current
// rate limit settings.
func (s *Server) throttle(cfg *config.Config, ip string) bool {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return false
	}
	window := time.Duration(rl.WindowSeconds) * time.Second
	return !s.limiter.Allow(ip, rl.Limit, window)
}
