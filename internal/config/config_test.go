package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/star/spacedecay/internal/cache"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %s", cfg.FetchTimeout)
	}
	if cfg.RefreshInterval != 0 {
		t.Errorf("RefreshInterval = %s, want disabled", cfg.RefreshInterval)
	}
	if opts := cfg.CacheOptions(); opts.Kind != cache.KindSQLite || opts.MaxFiles != 5 {
		t.Errorf("CacheOptions = %+v", opts)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %s", cfg.SlogLevel())
	}
	if cfg.LocaleTag() != language.English {
		t.Errorf("LocaleTag = %s", cfg.LocaleTag())
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"SPACEDECAY_HTTP_ADDR":        ":9090",
		"SPACEDECAY_DATA_SERVICE_URL": "https://data.example.com/api/data",
		"SPACEDECAY_DECAY_SOURCE":     "https://files.example.com/space_decay.csv",
		"SPACEDECAY_FETCH_TIMEOUT":    "5s",
		"SPACEDECAY_CACHE_BACKEND":    "Pebble",
		"SPACEDECAY_CACHE_DIR":        "/var/cache/spacedecay",
		"SPACEDECAY_CACHE_MAX_FILES":  "3",
		"SPACEDECAY_REFRESH_INTERVAL": "15m",
		"SPACEDECAY_LOCALE":           "fr",
		"SPACEDECAY_LOG_LEVEL":        "DEBUG",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.FetchTimeout != 5*time.Second || cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("unexpected config: %+v", cfg)
	}
	opts := cfg.CacheOptions()
	if opts.Kind != cache.KindPebble || opts.Dir != "/var/cache/spacedecay" || opts.MaxFiles != 3 {
		t.Errorf("CacheOptions = %+v", opts)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %s", cfg.SlogLevel())
	}
	if cfg.LocaleTag() != language.French {
		t.Errorf("LocaleTag = %s", cfg.LocaleTag())
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		wantErr string
	}{
		{"bad duration", map[string]string{"SPACEDECAY_FETCH_TIMEOUT": "soon"}, "parse env"},
		{"zero timeout", map[string]string{"SPACEDECAY_FETCH_TIMEOUT": "0s"}, "FETCH_TIMEOUT"},
		{"backend", map[string]string{"SPACEDECAY_CACHE_BACKEND": "redis"}, "CACHE_BACKEND"},
		{"max files", map[string]string{"SPACEDECAY_CACHE_MAX_FILES": "0"}, "CACHE_MAX_FILES"},
		{"service url", map[string]string{"SPACEDECAY_DATA_SERVICE_URL": "ftp://host/data"}, "DATA_SERVICE_URL"},
		{"negative refresh", map[string]string{"SPACEDECAY_REFRESH_INTERVAL": "-1m"}, "REFRESH_INTERVAL"},
		{"locale", map[string]string{"SPACEDECAY_LOCALE": "not a locale!"}, "LOCALE"},
		{"log level", map[string]string{"SPACEDECAY_LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.environ)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}

// TestValidateReportsAllErrors verifies that every invalid field is reported
// at once.
func TestValidateReportsAllErrors(t *testing.T) {
	cfg, _ := Parse(map[string]string{})
	cfg.CacheMaxFiles = 0
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"CACHE_MAX_FILES", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestCacheDirRequirement(t *testing.T) {
	cfg, _ := Parse(map[string]string{})
	cfg.CacheDir = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "CACHE_DIR") {
		t.Errorf("expected CACHE_DIR error for sqlite backend, got %v", err)
	}

	cfg.CacheBackend = "memory"
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backend needs no dir: %v", err)
	}
}

// TestLoadEnvFile verifies the dotenv file fills unset variables without
// overriding the process environment.
func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spacedecay.env")
	content := "SPACEDECAY_CACHE_BACKEND=memory\nSPACEDECAY_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SPACEDECAY_CACHE_BACKEND") })
	t.Setenv("SPACEDECAY_ENV_FILE", path)
	t.Setenv("SPACEDECAY_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("CacheBackend = %q, want memory from env file", cfg.CacheBackend)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("SlogLevel = %s, want process environment to win", cfg.SlogLevel())
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("SPACEDECAY_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
