// Package config handles loading, validation and hot-reloading of the
// shroud configuration document.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigUnavailable is returned when no configuration snapshot has ever
// been loaded successfully. It is fatal at startup: the process must not
// serve traffic without a valid configuration.
var ErrConfigUnavailable = errors.New("configuration unavailable")

// ChecksConfig holds the per-stage enable flags for the classification
// pipeline.
type ChecksConfig struct {
	// UACheck enables the user-agent pattern stage.
	UACheck bool `json:"uaCheck" yaml:"uaCheck"`
	// IPCheck enables the private/loopback IP pattern stage.
	IPCheck bool `json:"ipCheck" yaml:"ipCheck"`
	// ReputationCheck enables the external reputation probe stage.
	ReputationCheck bool `json:"reputationCheck" yaml:"reputationCheck"`
}

// CloakingConfig holds the cloaking master switch and check flags.
type CloakingConfig struct {
	// Enabled is the master switch. When false every visitor is treated
	// as organic traffic.
	Enabled bool         `json:"enabled" yaml:"enabled"`
	Checks  ChecksConfig `json:"checks" yaml:"checks"`
}

// PageConfig describes the content served for one traffic class.
type PageConfig struct {
	// Title is the HTML document title.
	Title string `json:"title" yaml:"title"`
	// Body is the page body. Interpreted according to Format.
	Body string `json:"body" yaml:"body"`
	// Format is "html" (default) or "markdown".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// Headers are extra response headers to set when serving this page.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// PagesConfig holds the two page variants selected by the verdict.
type PagesConfig struct {
	// Organic is served to visitors classified as genuine.
	Organic PageConfig `json:"organic" yaml:"organic"`
	// Decoy is served to visitors classified as bot-like.
	Decoy PageConfig `json:"decoy" yaml:"decoy"`
}

// PWAConfig holds the Progressive Web App surface configuration.
type PWAConfig struct {
	// Manifest is the manifest.json document, served verbatim.
	Manifest json.RawMessage `json:"manifest" yaml:"-"`
}

// RateLimitConfig holds the per-IP request rate limit settings.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Limit is the maximum number of requests per window.
	Limit int `json:"limit" yaml:"limit"`
	// WindowSeconds is the rate limiting window in seconds.
	WindowSeconds int `json:"windowSeconds" yaml:"windowSeconds"`
}

// Config is an immutable snapshot of the operator-controlled configuration.
// Snapshots are replaced wholesale on reload and must never be mutated in
// place; every reader observes exactly one consistent instance.
type Config struct {
	Cloaking  CloakingConfig  `json:"cloaking" yaml:"cloaking"`
	Pages     PagesConfig     `json:"pages" yaml:"pages"`
	PWA       PWAConfig       `json:"pwa" yaml:"pwa"`
	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
}

// rawConfig mirrors Config with pointer sections so that missing required
// top-level fields can be distinguished from zero values.
type rawConfig struct {
	Cloaking  *CloakingConfig  `json:"cloaking" yaml:"cloaking"`
	Pages     *PagesConfig     `json:"pages" yaml:"pages"`
	PWA       *rawPWA          `json:"pwa" yaml:"pwa"`
	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
}

// rawPWA accepts the manifest as arbitrary structure in both JSON and YAML
// input and re-encodes it to canonical JSON for serving.
type rawPWA struct {
	Manifest any `json:"manifest" yaml:"manifest"`
}

// Load reads and parses the configuration file at the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(data, FormatYAML)
	default:
		return Parse(data, FormatJSON)
	}
}

// Format identifies the configuration document encoding.
type Format int

const (
	// FormatJSON is the original config.json encoding.
	FormatJSON Format = iota
	// FormatYAML is the YAML encoding.
	FormatYAML
)

// Parse parses configuration data into a validated Config.
func Parse(data []byte, format Format) (*Config, error) {
	var raw rawConfig
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg := &Config{
		Cloaking:  *raw.Cloaking,
		Pages:     *raw.Pages,
		RateLimit: *raw.RateLimit,
	}

	manifest, err := encodeManifest(raw.PWA.Manifest)
	if err != nil {
		return nil, fmt.Errorf("invalid pwa.manifest: %w", err)
	}
	cfg.PWA.Manifest = manifest

	return cfg, nil
}

// validate checks that all required top-level fields are present and
// internally consistent.
func validate(raw *rawConfig) error {
	var missing []string
	if raw.Cloaking == nil {
		missing = append(missing, "cloaking")
	}
	if raw.Pages == nil {
		missing = append(missing, "pages")
	}
	if raw.PWA == nil {
		missing = append(missing, "pwa")
	}
	if raw.RateLimit == nil {
		missing = append(missing, "rateLimit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config missing required fields: %s", strings.Join(missing, ", "))
	}

	if raw.RateLimit.Enabled {
		if raw.RateLimit.Limit <= 0 {
			return fmt.Errorf("rateLimit.limit must be positive, got %d", raw.RateLimit.Limit)
		}
		if raw.RateLimit.WindowSeconds <= 0 {
			return fmt.Errorf("rateLimit.windowSeconds must be positive, got %d", raw.RateLimit.WindowSeconds)
		}
	}

	for name, page := range map[string]*PageConfig{
		"pages.organic": &raw.Pages.Organic,
		"pages.decoy":   &raw.Pages.Decoy,
	} {
		switch page.Format {
		case "", "html", "markdown":
		default:
			return fmt.Errorf("%s.format must be \"html\" or \"markdown\", got %q", name, page.Format)
		}
	}

	return nil
}

// encodeManifest normalizes the manifest value to JSON regardless of the
// source document encoding. YAML unmarshals mappings as map[string]any,
// which encoding/json can serialize directly.
func encodeManifest(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
