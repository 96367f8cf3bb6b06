package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJSON = `{
  "cloaking": {
    "enabled": true,
    "checks": {"uaCheck": true, "ipCheck": true, "reputationCheck": false}
  },
  "pages": {
    "organic": {"title": "Welcome", "body": "<h1>Hello</h1>"},
    "decoy": {"title": "Coming soon", "body": "Under construction"}
  },
  "pwa": {
    "manifest": {"name": "Landing", "display": "standalone"}
  },
  "rateLimit": {"enabled": true, "limit": 60, "windowSeconds": 60}
}`

func TestParseJSON(t *testing.T) {
	cfg, err := Parse([]byte(validJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !cfg.Cloaking.Enabled {
		t.Error("Expected cloaking.enabled to be true")
	}
	if !cfg.Cloaking.Checks.UACheck || !cfg.Cloaking.Checks.IPCheck {
		t.Error("Expected UA and IP checks enabled")
	}
	if cfg.Cloaking.Checks.ReputationCheck {
		t.Error("Expected reputation check disabled")
	}
	if cfg.Pages.Organic.Title != "Welcome" {
		t.Errorf("Expected organic title %q, got %q", "Welcome", cfg.Pages.Organic.Title)
	}
	if cfg.RateLimit.Limit != 60 || cfg.RateLimit.WindowSeconds != 60 {
		t.Errorf("Unexpected rate limit config: %+v", cfg.RateLimit)
	}

	var manifest map[string]any
	if err := json.Unmarshal(cfg.PWA.Manifest, &manifest); err != nil {
		t.Fatalf("Manifest is not valid JSON: %v", err)
	}
	if manifest["name"] != "Landing" {
		t.Errorf("Expected manifest name %q, got %v", "Landing", manifest["name"])
	}
}

func TestParseYAML(t *testing.T) {
	data := `
cloaking:
  enabled: false
  checks:
    uaCheck: true
    ipCheck: false
    reputationCheck: true
pages:
  organic:
    title: Real
    body: organic body
  decoy:
    title: Fake
    body: "**decoy**"
    format: markdown
pwa:
  manifest:
    name: Landing
rateLimit:
  enabled: false
  limit: 0
  windowSeconds: 0
`
	cfg, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Cloaking.Enabled {
		t.Error("Expected cloaking disabled")
	}
	if cfg.Pages.Decoy.Format != "markdown" {
		t.Errorf("Expected decoy format markdown, got %q", cfg.Pages.Decoy.Format)
	}

	var manifest map[string]any
	if err := json.Unmarshal(cfg.PWA.Manifest, &manifest); err != nil {
		t.Fatalf("Manifest is not valid JSON after YAML round-trip: %v", err)
	}
	if manifest["name"] != "Landing" {
		t.Errorf("Expected manifest name %q, got %v", "Landing", manifest["name"])
	}
}

func TestParseMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		missing string
	}{
		{"no cloaking", `{"pages": {}, "pwa": {}, "rateLimit": {}}`, "cloaking"},
		{"no pages", `{"cloaking": {}, "pwa": {}, "rateLimit": {}}`, "pages"},
		{"no pwa", `{"cloaking": {}, "pages": {}, "rateLimit": {}}`, "pwa"},
		{"no rateLimit", `{"cloaking": {}, "pages": {}, "pwa": {}}`, "rateLimit"},
		{"empty", `{}`, "cloaking, pages, pwa, rateLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatJSON)
			if err == nil {
				t.Fatal("Expected error for missing fields")
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("Expected error to name %q, got: %v", tt.missing, err)
			}
		})
	}
}

func TestParseInvalidRateLimit(t *testing.T) {
	data := `{
  "cloaking": {"enabled": true},
  "pages": {"organic": {}, "decoy": {}},
  "pwa": {"manifest": {}},
  "rateLimit": {"enabled": true, "limit": 0, "windowSeconds": 60}
}`
	if _, err := Parse([]byte(data), FormatJSON); err == nil {
		t.Fatal("Expected error for non-positive rate limit")
	}
}

func TestParseInvalidPageFormat(t *testing.T) {
	data := `{
  "cloaking": {"enabled": true},
  "pages": {"organic": {"format": "latex"}, "decoy": {}},
  "pwa": {"manifest": {}},
  "rateLimit": {"enabled": false}
}`
	if _, err := Parse([]byte(data), FormatJSON); err == nil {
		t.Fatal("Expected error for unknown page format")
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("{not json"), FormatJSON); err == nil {
		t.Fatal("Expected parse error for malformed JSON")
	}
	if _, err := Parse([]byte(":\t-"), FormatYAML); err == nil {
		t.Fatal("Expected parse error for malformed YAML")
	}
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(jsonPath, []byte(validJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(jsonPath); err != nil {
		t.Errorf("Load(.json) failed: %v", err)
	}

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlData := `
cloaking:
  enabled: true
pages:
  organic: {title: a, body: b}
  decoy: {title: c, body: d}
pwa:
  manifest: {}
rateLimit:
  enabled: false
`
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(yamlPath); err != nil {
		t.Errorf("Load(.yaml) failed: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
