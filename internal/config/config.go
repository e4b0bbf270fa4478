package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/neonkit/neon/pkg/eachlabs"
)

const (
	EnvAPIKey   = "EACHLABS_API_KEY"
	EnvBaseURL  = "EACHLABS_BASE_URL"
	EnvTimeout  = "EACHLABS_TIMEOUT"
	EnvJournal  = "EACHLABS_JOURNAL"
	EnvLogLevel = "EACHLABS_LOG_LEVEL"

	DefaultJournal = "sqlite:eachlabs_runs.db"
)

// ErrMissingAPIKey is returned by RequireAPIKey when no key is configured.
var ErrMissingAPIKey = errors.New(EnvAPIKey + " is not set")

// Config is the CLI configuration.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Journal  string
	LogLevel slog.Level
}

// RequireAPIKey returns ErrMissingAPIKey when APIKey is empty.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// LoadDotEnv loads the given files into the environment. Variables already
// set win over the files. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env (%s): %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		APIKey:  getEnv(EnvAPIKey, ""),
		BaseURL: getEnv(EnvBaseURL, eachlabs.DefaultBaseURL),
		Journal: getEnv(EnvJournal, DefaultJournal),
	}

	if raw := getEnv(EnvTimeout, ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("%s: negative duration %s", EnvTimeout, d)
		}
		cfg.Timeout = d
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv(EnvLogLevel, "info"))); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}

	return cfg, nil
}
