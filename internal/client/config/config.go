// Package config loads runtime configuration for the medremind CLI.
//
// Sources and precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables (see loadEnv).
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-home string       state directory (secure store, store key)
//	-timeout duration  connection check and request timeout
//	-ephemeral         keep the secure store in memory only
//	-log-level string  debug, info, warn or error
//
// The backend endpoint is not configured here. It lives in the secure store
// and is changed with `medremind endpoint set`.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/medremind/internal/client/connection"
	"github.com/sakif/medremind/internal/healthai"
)

// StoreKeyFile is the file under Home that holds the generated sealing
// passphrase when MEDREMIND_STORE_SECRET is unset.
const StoreKeyFile = "store.key"

// Config holds runtime settings for the medremind CLI.
type Config struct {
	Home        string
	StoreSecret string
	Timeout     time.Duration
	Ephemeral   bool
	LogLevel    string

	GeminiAPIKey string
	GeminiModel  string

	// ProjectID is the push project; empty means remote registration is declined.
	ProjectID string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.Home = defaultHome()
	c.Timeout = connection.DefaultTimeout
	c.LogLevel = "info"
	c.GeminiModel = healthai.DefaultModel
}

func defaultHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".medremind"
	}
	return filepath.Join(dir, "medremind")
}

// Load builds a Config from defaults, the environment and args (without the
// program name). It returns the arguments left after the flags, which name
// the subcommand.
func Load(args []string, getenv func(string) string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := loadEnv(cfg, getenv); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// loadEnv overlays values from environment variables. The Gemini key is also
// read from its Expo name so an existing app .env works unchanged.
func loadEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("MEDREMIND_HOME"); v != "" {
		cfg.Home = v
	}
	if v := getenv("MEDREMIND_STORE_SECRET"); v != "" {
		cfg.StoreSecret = v
	}
	if v := getenv("MEDREMIND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MEDREMIND_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := getenv("MEDREMIND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("MEDREMIND_PROJECT_ID"); v != "" {
		cfg.ProjectID = v
	}
	if v := getenv("MEDREMIND_GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}

	cfg.GeminiAPIKey = getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = getenv("EXPO_PUBLIC_GEMINI_API_KEY")
	}
	return nil
}

func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("medremind", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Home, "home", cfg.Home, "state directory")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "connection check and request timeout")
	fs.BoolVar(&cfg.Ephemeral, "ephemeral", cfg.Ephemeral, "keep the secure store in memory only")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// StorePath is the secure store database under Home.
func (c *Config) StorePath() string {
	return filepath.Join(c.Home, "store.db")
}

// Secret returns the sealing passphrase. Without MEDREMIND_STORE_SECRET it is
// read from Home/store.key, which is generated (0600) on first use.
func (c *Config) Secret() ([]byte, error) {
	if c.StoreSecret != "" {
		return []byte(c.StoreSecret), nil
	}

	path := filepath.Join(c.Home, StoreKeyFile)
	data, err := os.ReadFile(path)
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("store key %s is empty", path)
		}
		return []byte(key), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading store key: %w", err)
	}

	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return nil, fmt.Errorf("creating home: %w", err)
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating store key: %w", err)
	}
	key := hex.EncodeToString(raw)

	// O_EXCL so two first runs cannot each write a different key.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return c.Secret()
	}
	if err != nil {
		return nil, fmt.Errorf("writing store key: %w", err)
	}
	if _, err := f.WriteString(key + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing store key: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing store key: %w", err)
	}
	return []byte(key), nil
}
