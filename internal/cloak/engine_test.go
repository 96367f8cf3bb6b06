package cloak

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shroudlabs/shroud/internal/cache"
	"github.com/shroudlabs/shroud/internal/config"
)

// stubProber is a Prober with a fixed answer and a call counter.
type stubProber struct {
	flagged bool
	err     error
	calls   atomic.Int64
}

func (p *stubProber) Probe(ctx context.Context, ip string) (bool, error) {
	p.calls.Add(1)
	return p.flagged, p.err
}

func testConfig(enabled bool, checks config.ChecksConfig) *config.Config {
	return &config.Config{
		Cloaking: config.CloakingConfig{Enabled: enabled, Checks: checks},
	}
}

func newTestEngine(prober Prober) (*Engine, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	return NewEngine(cache.NewVerdictCache(store, nil), prober, nil), store
}

func TestAnalyzeMasterSwitchOff(t *testing.T) {
	prober := &stubProber{flagged: true}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(false, config.ChecksConfig{UACheck: true, IPCheck: true, ReputationCheck: true})
	result := engine.Analyze(context.Background(), "127.0.0.1", "curl/8.0", cfg)

	if result.Verdict != VerdictOrganic {
		t.Errorf("Expected organic with cloaking disabled, got %v", result.Verdict)
	}
	if prober.calls.Load() != 0 {
		t.Error("Probe must not run when cloaking is disabled")
	}
}

func TestAnalyzeUACheckShortCircuitsProbe(t *testing.T) {
	prober := &stubProber{flagged: false}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(true, config.ChecksConfig{UACheck: true, IPCheck: true, ReputationCheck: true})
	result := engine.Analyze(context.Background(), "8.8.8.8", "curl/8.0", cfg)

	if result.Verdict != VerdictDecoy {
		t.Errorf("Expected decoy via UA stage, got %v", result.Verdict)
	}
	if !result.Checks.UA {
		t.Error("Expected UA check flag set")
	}
	if result.Checks.IP || result.Checks.Reputation {
		t.Error("Later stages must not fire after UA short-circuit")
	}
	if prober.calls.Load() != 0 {
		t.Error("Probe must not be invoked when UA stage already matched")
	}
}

func TestAnalyzeIPCheck(t *testing.T) {
	engine, _ := newTestEngine(&stubProber{})

	// UA check disabled, IP check enabled: private IP is decoy.
	cfg := testConfig(true, config.ChecksConfig{IPCheck: true})
	result := engine.Analyze(context.Background(), "192.168.1.5", "Mozilla/5.0 (Macintosh)", cfg)

	if result.Verdict != VerdictDecoy {
		t.Errorf("Expected decoy via IP stage, got %v", result.Verdict)
	}
	if !result.Checks.IP {
		t.Error("Expected IP check flag set")
	}
}

func TestAnalyzeDisabledChecksIgnored(t *testing.T) {
	engine, _ := newTestEngine(&stubProber{})

	// Matching UA but UA check disabled.
	cfg := testConfig(true, config.ChecksConfig{IPCheck: true})
	result := engine.Analyze(context.Background(), "8.8.8.8", "curl/8.0", cfg)

	if result.Verdict != VerdictOrganic {
		t.Errorf("Expected organic with matching check disabled, got %v", result.Verdict)
	}
}

func TestAnalyzeReputationProbe(t *testing.T) {
	prober := &stubProber{flagged: true}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(true, config.ChecksConfig{ReputationCheck: true})
	result := engine.Analyze(context.Background(), "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)

	if result.Verdict != VerdictDecoy {
		t.Errorf("Expected decoy via reputation stage, got %v", result.Verdict)
	}
	if !result.Checks.Reputation {
		t.Error("Expected reputation check flag set")
	}
	if prober.calls.Load() != 1 {
		t.Errorf("Expected one probe call, got %d", prober.calls.Load())
	}
}

func TestAnalyzeCleanVisitorIsOrganic(t *testing.T) {
	prober := &stubProber{flagged: false}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(true, config.ChecksConfig{ReputationCheck: true})
	result := engine.Analyze(context.Background(), "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)

	if result.Verdict != VerdictOrganic {
		t.Errorf("Expected organic verdict, got %v", result.Verdict)
	}
	if result.FromCache {
		t.Error("Cold classification must not be marked as cached")
	}
}

func TestAnalyzeFailClosedOnProbeError(t *testing.T) {
	prober := &stubProber{err: errors.New("timeout")}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(true, config.ChecksConfig{ReputationCheck: true})
	result := engine.Analyze(context.Background(), "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)

	if result.Verdict != VerdictDecoy {
		t.Errorf("Expected fail-closed decoy on probe failure, got %v", result.Verdict)
	}
	if result.Comment == "" {
		t.Error("Expected fallback comment on probe failure")
	}
}

func TestAnalyzeCachesVerdict(t *testing.T) {
	prober := &stubProber{flagged: true}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(true, config.ChecksConfig{ReputationCheck: true})
	ctx := context.Background()

	first := engine.Analyze(ctx, "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)
	if first.FromCache {
		t.Fatal("First classification must be cold")
	}

	second := engine.Analyze(ctx, "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)
	if !second.FromCache {
		t.Error("Second classification should be served from cache")
	}
	if second.Verdict != first.Verdict {
		t.Errorf("Cached verdict %v differs from original %v", second.Verdict, first.Verdict)
	}
	if prober.calls.Load() != 1 {
		t.Errorf("Probe should run once, ran %d times", prober.calls.Load())
	}
}

func TestAnalyzeErrorFallbackIsCached(t *testing.T) {
	prober := &stubProber{err: errors.New("boom")}
	engine, _ := newTestEngine(prober)

	cfg := testConfig(true, config.ChecksConfig{ReputationCheck: true})
	ctx := context.Background()

	engine.Analyze(ctx, "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)
	second := engine.Analyze(ctx, "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)

	if !second.FromCache || second.Verdict != VerdictDecoy {
		t.Errorf("Expected cached decoy from error fallback, got %+v", second)
	}
	if prober.calls.Load() != 1 {
		t.Errorf("Probe should not re-run within TTL, ran %d times", prober.calls.Load())
	}
}

func TestAnalyzeSurvivesCacheFailure(t *testing.T) {
	prober := &stubProber{flagged: false}
	engine := NewEngine(cache.NewVerdictCache(unavailableStore{}, nil), prober, nil)

	cfg := testConfig(true, config.ChecksConfig{UACheck: true, ReputationCheck: true})
	result := engine.Analyze(context.Background(), "8.8.8.8", "Mozilla/5.0 (Macintosh)", cfg)

	if result.Verdict != VerdictOrganic {
		t.Errorf("Expected correct uncached verdict despite cache failure, got %v", result.Verdict)
	}
}

// unavailableStore fails every operation, like a down Redis.
type unavailableStore struct{}

func (unavailableStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (unavailableStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("connection refused")
}
