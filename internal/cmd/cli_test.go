package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

const validateTestConfig = `{
  "cloaking": {"enabled": true, "checks": {"uaCheck": true, "ipCheck": true, "reputationCheck": false}},
  "pages": {
    "organic": {"title": "Welcome", "body": "<p>hello</p>"},
    "decoy": {"title": "Blog", "body": "<p>posts</p>"}
  },
  "pwa": {"manifest": {"name": "Welcome"}},
  "rateLimit": {"enabled": false, "limit": 10, "windowSeconds": 60}
}`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigValidateAcceptsValidFile(t *testing.T) {
	path := writeTempConfig(t, validateTestConfig)

	rootCmd.SetArgs([]string{"config", "validate", "--config", path})
	if err := rootCmd.Execute(); err != nil {
		t.Errorf("Execute() = %v, want nil", err)
	}
}

func TestConfigValidateRejectsInvalidFile(t *testing.T) {
	path := writeTempConfig(t, `{"cloaking": {"enabled": true}}`)

	rootCmd.SetArgs([]string{"config", "validate", "--config", path})
	if err := rootCmd.Execute(); err == nil {
		t.Error("Execute() should fail for a config missing required sections")
	}
}

func TestConfigValidateRejectsMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"config", "validate", "--config", filepath.Join(t.TempDir(), "absent.json")})
	if err := rootCmd.Execute(); err == nil {
		t.Error("Execute() should fail when the file does not exist")
	}
}
