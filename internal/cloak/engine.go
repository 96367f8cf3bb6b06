package cloak

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shroudlabs/shroud/internal/cache"
	"github.com/shroudlabs/shroud/internal/config"
)

// Prober answers whether an IP is associated with anonymizing or automation
// infrastructure. Implementations must bound their own work with a timeout;
// any failure is returned as an error and never as a hang.
type Prober interface {
	Probe(ctx context.Context, ip string) (bool, error)
}

// CheckFlags records which pipeline stages produced a positive finding.
type CheckFlags struct {
	UA         bool `json:"ua" bson:"ua"`
	IP         bool `json:"ip" bson:"ip"`
	Reputation bool `json:"reputation" bson:"reputation"`
}

// Result is the outcome of one classification.
type Result struct {
	Verdict   Verdict
	FromCache bool
	Checks    CheckFlags
	// Comment notes the error-fallback path when a stage failed.
	Comment string
}

// Engine runs the classification pipeline: cache lookup, then an ordered,
// short-circuiting sequence of checks against a single config snapshot.
type Engine struct {
	cache  *cache.VerdictCache
	prober Prober
	logger *slog.Logger
}

// NewEngine creates a classification engine. The prober may be nil when the
// reputation check is never enabled.
func NewEngine(verdicts *cache.VerdictCache, prober Prober, logger *slog.Logger) *Engine {
	return &Engine{
		cache:  verdicts,
		prober: prober,
		logger: logger,
	}
}

// Analyze classifies one request. The caller passes the config snapshot it
// is serving the request with, so classification and content selection see
// the same consistent configuration even while a reload swaps the snapshot.
//
// No error is ever returned: every failure mode inside the pipeline resolves
// to a verdict. When classification is uncertain the decoy is preferred over
// risking the protected content reaching an unverified automated client.
func (e *Engine) Analyze(ctx context.Context, ip, userAgent string, cfg *config.Config) Result {
	// Master switch: cloaking fully off, everyone is organic.
	if !cfg.Cloaking.Enabled {
		return Result{Verdict: VerdictOrganic}
	}

	fingerprint := Fingerprint(ip, userAgent)

	if cached, ok := e.cache.Get(ctx, fingerprint); ok {
		if verdict, err := ParseVerdict(cached); err == nil {
			if e.logger != nil {
				e.logger.Debug("verdict_cache_hit", "fingerprint", fingerprint, "verdict", verdict)
			}
			return Result{Verdict: verdict, FromCache: true}
		}
		// A corrupt cache entry falls through to a fresh classification.
		if e.logger != nil {
			e.logger.Warn("verdict_cache_corrupt", "fingerprint", fingerprint, "value", cached)
		}
	}

	result := e.classify(ctx, ip, userAgent, cfg)

	// Cache regardless of which stage produced the verdict, including the
	// error-fallback case.
	e.cache.Set(ctx, fingerprint, result.Verdict.String())

	if e.logger != nil {
		e.logger.Debug("traffic_classified", "ip", ip, "verdict", result.Verdict,
			"ua_check", result.Checks.UA, "ip_check", result.Checks.IP,
			"reputation_check", result.Checks.Reputation)
	}
	return result
}

// classify runs the check stages in order, short-circuiting once a stage
// finds the visitor bot-like. The default assumption is that a visitor is
// genuine until proven otherwise.
func (e *Engine) classify(ctx context.Context, ip, userAgent string, cfg *config.Config) Result {
	result := Result{Verdict: VerdictOrganic}
	checks := cfg.Cloaking.Checks

	if checks.UACheck && IsBotUserAgent(userAgent) {
		result.Verdict = VerdictDecoy
		result.Checks.UA = true
		if e.logger != nil {
			e.logger.Debug("bot_user_agent_detected", "user_agent", userAgent)
		}
		return result
	}

	if checks.IPCheck && IsSuspiciousIP(ip) {
		result.Verdict = VerdictDecoy
		result.Checks.IP = true
		if e.logger != nil {
			e.logger.Debug("suspicious_ip_detected", "ip", ip)
		}
		return result
	}

	// The probe is the most expensive stage and only runs when the cheaper
	// stages found nothing.
	if checks.ReputationCheck && e.prober != nil {
		flagged, err := e.prober.Probe(ctx, ip)
		if err != nil {
			// Fail closed: an uncertain classification prefers the decoy.
			if e.logger != nil {
				e.logger.Warn("reputation_probe_failed", "ip", ip, "error", err)
			}
			result.Verdict = VerdictDecoy
			result.Comment = fmt.Sprintf("reputation probe failed: %v", err)
			return result
		}
		if flagged {
			result.Verdict = VerdictDecoy
			result.Checks.Reputation = true
			if e.logger != nil {
				e.logger.Debug("reputation_flagged", "ip", ip)
			}
			return result
		}
	}

	return result
}
