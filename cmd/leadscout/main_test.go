package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseConfigLayersFlagsOverEnv(t *testing.T) {
	t.Setenv("LEADSCOUT_MAX_SUBPAGES", "3")
	t.Setenv("LEADSCOUT_SEARCH_PROVIDER", "brave")
	t.Setenv("LEADSCOUT_TIMEOUT", "4s")

	cfg, rest, err := parseConfig("scan", []string{"-max-subpages", "1", "-scan-policy", "EXHAUSTIVE", "-allowed-origins", "https://a.test, https://b.test", "acme.com"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MaxSubpages != 1 {
		t.Errorf("max subpages = %d, want flag value 1", cfg.MaxSubpages)
	}
	if cfg.SearchProvider != "brave" {
		t.Errorf("provider = %q, want env value brave", cfg.SearchProvider)
	}
	if cfg.Timeout != 4*time.Second {
		t.Errorf("timeout = %s, want 4s", cfg.Timeout)
	}
	if cfg.ScanPolicy != "exhaustive" {
		t.Errorf("scan policy = %q", cfg.ScanPolicy)
	}
	if want := []string{"https://a.test", "https://b.test"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("allowed origins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if !reflect.DeepEqual(rest, []string{"acme.com"}) {
		t.Errorf("args = %v", rest)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("LEADSCOUT_WORKERS", "many")
	if _, _, err := parseConfig("bulk", nil); err == nil {
		t.Fatal("expected error for non-numeric LEADSCOUT_WORKERS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LEADSCOUT_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("LEADSCOUT_DOTENV_PROBE", "")
	os.Unsetenv("LEADSCOUT_DOTENV_PROBE")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("LEADSCOUT_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("probe = %q, want from-file", got)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if code := run([]string{"explode"}); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if code := run(nil); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
