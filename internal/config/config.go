// Package config assembles runtime settings from defaults, an optional
// .env file, GITCARD_* environment variables and command-line flags, in
// that order of precedence (flags win).
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "GITCARD_"

type Config struct {
	// Mode
	Serve  bool
	User   string
	OutDir string
	Demo   bool

	// HTTP server
	Addr       string
	PublicURL  string
	SessionTTL time.Duration

	// Remote API
	APIBaseURL  string
	UserAgent   string
	HTTPTimeout time.Duration

	// Export
	FlipDelay time.Duration
	Scale     int

	LogLevel  string
	LogFormat string
}

func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.PublicURL = "http://localhost:8080"
	c.SessionTTL = 30 * time.Minute
	c.APIBaseURL = "https://api.github.com"
	c.UserAgent = "gitcard/0.1"
	c.HTTPTimeout = 10 * time.Second
	c.FlipDelay = 500 * time.Millisecond
	c.Scale = 2
	c.OutDir = "."
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// Load builds the configuration for the given command-line arguments
// (without the program name).
func Load(args []string) (*Config, error) {
	if err := loadDotEnv(envFileArg(args)); err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.LoadDefaults()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads path, or ./.env when path is empty. A missing default
// file is fine; a missing explicit one is not.
func loadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}

func envFileArg(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "env" || !strings.HasPrefix(a, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func (c *Config) applyEnv() error {
	c.Addr = getEnv("ADDR", c.Addr)
	c.PublicURL = getEnv("PUBLIC_URL", c.PublicURL)
	c.APIBaseURL = getEnv("API_URL", c.APIBaseURL)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.OutDir = getEnv("OUT_DIR", c.OutDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var err error
	if c.SessionTTL, err = getEnvDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	if c.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.FlipDelay, err = getEnvDuration("FLIP_DELAY", c.FlipDelay); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(envPrefix + "SCALE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sSCALE: %w", envPrefix, err)
		}
		c.Scale = n
	}
	if v, ok := os.LookupEnv(envPrefix + "DEMO"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sDEMO: %w", envPrefix, err)
		}
		c.Demo = b
	}
	return nil
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("gitcard", flag.ContinueOnError)

	fs.String("env", "", "path to a .env file")
	fs.BoolVar(&c.Serve, "serve", c.Serve, "run the HTTP server")
	fs.StringVar(&c.User, "user", c.User, "GitHub username to export (one-shot mode)")
	fs.StringVar(&c.OutDir, "out", c.OutDir, "directory for exported PNG files")
	fs.BoolVar(&c.Demo, "demo", c.Demo, "use canned demo data instead of the GitHub API")
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.PublicURL, "public-url", c.PublicURL, "public base URL used in share links")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "idle time before a card session is dropped")
	fs.StringVar(&c.APIBaseURL, "api-url", c.APIBaseURL, "GitHub REST API base URL")
	fs.DurationVar(&c.HTTPTimeout, "timeout", c.HTTPTimeout, "timeout for outbound API requests")
	fs.DurationVar(&c.FlipDelay, "flip-delay", c.FlipDelay, "wait after flipping the card before capturing")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel density multiplier for exports")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "json or text")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Scale < 1 || c.Scale > 4 {
		return fmt.Errorf("config: scale must be between 1 and 4, got %d", c.Scale)
	}
	if c.FlipDelay < 0 {
		return fmt.Errorf("config: flip delay must not be negative")
	}
	if !c.Serve && strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("config: either -serve or -user is required")
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(envPrefix + key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val, ok := os.LookupEnv(envPrefix + key)
	if !ok || val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	return d, nil
}
