// Package config reads service settings from SPACEDECAY_* environment
// variables, optionally seeded from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/star/spacedecay/internal/cache"
)

const envPrefix = "SPACEDECAY_"

// Config holds all service settings.
type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	DataServiceURL string        `env:"DATA_SERVICE_URL" envDefault:"http://localhost:3000/api/data"`
	DecaySource    string        `env:"DECAY_SOURCE" envDefault:"data/space_decay.csv"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`

	CacheBackend  string `env:"CACHE_BACKEND" envDefault:"sqlite"`
	CacheDir      string `env:"CACHE_DIR" envDefault:"/tmp/spacedecay/cache"`
	CacheMaxFiles int    `env:"CACHE_MAX_FILES" envDefault:"5"`

	// RefreshInterval schedules forced reloads. Zero disables them.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"0s"`
	Locale          string        `env:"LOCALE" envDefault:"en"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the dotenv file named by SPACEDECAY_ENV_FILE (or ./.env when
// present) and then parses the process environment. Variables already set
// in the environment take precedence over the file.
func Load() (Config, error) {
	if err := loadEnvFile(os.Getenv(envPrefix + "ENV_FILE")); err != nil {
		return Config{}, err
	}
	return parse(env.Options{Prefix: envPrefix})
}

// Parse builds a Config from an explicit variable map instead of the
// process environment.
func Parse(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: envPrefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New(envPrefix+"HTTP_ADDR must not be empty"))
	}
	if u, err := url.Parse(c.DataServiceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%sDATA_SERVICE_URL must be an http(s) URL, got %q", envPrefix, c.DataServiceURL))
	}
	if strings.TrimSpace(c.DecaySource) == "" {
		errs = append(errs, errors.New(envPrefix+"DECAY_SOURCE must not be empty"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sFETCH_TIMEOUT must be positive, got %s", envPrefix, c.FetchTimeout))
	}
	kind, err := cache.ParseKind(c.CacheBackend)
	if err != nil {
		errs = append(errs, fmt.Errorf("%sCACHE_BACKEND: %w", envPrefix, err))
	} else if kind != cache.KindMemory && c.CacheDir == "" {
		errs = append(errs, fmt.Errorf("%sCACHE_DIR is required for the %s backend", envPrefix, kind))
	}
	if c.CacheMaxFiles < 1 {
		errs = append(errs, fmt.Errorf("%sCACHE_MAX_FILES must be at least 1, got %d", envPrefix, c.CacheMaxFiles))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("%sREFRESH_INTERVAL must not be negative, got %s", envPrefix, c.RefreshInterval))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errs = append(errs, fmt.Errorf("%sLOCALE: %w", envPrefix, err))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err))
	}

	return errors.Join(errs...)
}

// LocaleTag returns the configured display language for country names.
func (c Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// CacheOptions returns the options for cache.Open.
func (c Config) CacheOptions() cache.Options {
	kind, _ := cache.ParseKind(c.CacheBackend)
	return cache.Options{Kind: kind, Dir: c.CacheDir, MaxFiles: c.CacheMaxFiles}
}
