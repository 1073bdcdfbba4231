// Package config loads portal settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIBaseURL  string        `yaml:"api_base_url"`
	APITimeout  time.Duration `yaml:"api_timeout"`
	HTTPPort    string        `yaml:"http_port"`
	GRPCPort    string        `yaml:"grpc_port"`
	DatabaseURL string        `yaml:"database_url"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	LoginRPS    float64       `yaml:"login_rps"`
	LoginBurst  int           `yaml:"login_burst"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	TokenFile   string        `yaml:"token_file"`
}

func Default() Config {
	tokenFile := ".petadopt/token"
	if home, err := os.UserHomeDir(); err == nil {
		tokenFile = filepath.Join(home, tokenFile)
	}
	return Config{
		APIBaseURL: "http://localhost:8080/api",
		APITimeout: 10 * time.Second,
		HTTPPort:   "8081",
		GRPCPort:   "50061",
		LogLevel:   "info",
		LogFormat:  "json",
		LoginRPS:   5,
		LoginBurst: 10,
		SessionTTL: 24 * time.Hour,
		TokenFile:  tokenFile,
	}
}

// Load reads .env (missing is fine), then path (or PORTAL_CONFIG when path is
// empty), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()

	if path == "" {
		path = os.Getenv("PORTAL_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("API_BASE_URL", &c.APIBaseURL)
	str("HTTP_PORT", &c.HTTPPort)
	str("GRPC_PORT", &c.GRPCPort)
	str("DATABASE_URL", &c.DatabaseURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("TOKEN_FILE", &c.TokenFile)

	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	dur("API_TIMEOUT", &c.APITimeout)
	dur("SESSION_TTL", &c.SessionTTL)

	if v := os.Getenv("LOGIN_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: LOGIN_RPS: %w", err))
		} else {
			c.LoginRPS = f
		}
	}
	if v := os.Getenv("LOGIN_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: LOGIN_BURST: %w", err))
		} else {
			c.LoginBurst = n
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api base url %q must be an absolute http(s) url", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return errors.New("config: api timeout must be positive")
	}
	if c.LoginRPS <= 0 || c.LoginBurst <= 0 {
		return errors.New("config: login rate limits must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: session ttl must be positive")
	}
	return nil
}
