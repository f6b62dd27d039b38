package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dfrtlabs/loglens/internal/cache"
	"github.com/dfrtlabs/loglens/internal/ingest"
	"github.com/dfrtlabs/loglens/internal/models"
)

// Config captures every setting of the analyzer service and CLI.
type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Logging  LoggingConfig          `yaml:"logging"`
	Rules    RulesConfig            `yaml:"rules"`
	Cache    CacheConfig            `yaml:"cache"`
	Analysis models.AnalysisOptions `yaml:"analysis"`
	Ingest   IngestConfig           `yaml:"ingest"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	// AllowedRoots restricts RunAnalysis paths to these directories when non-empty.
	AllowedRoots []string `yaml:"allowedRoots"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for the recommender. An empty path disables the pack.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls where completed analysis results are kept.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	MaxEntries   int           `yaml:"maxEntries"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// IngestConfig bounds file reading.
type IngestConfig struct {
	MaxLineBytes int `yaml:"maxLineBytes"`
}

// Provider converts the cache section into provider settings.
func (c CacheConfig) Provider() cache.Config {
	return cache.Config{
		Backend:    c.Backend,
		MaxEntries: c.MaxEntries,
		Valkey: cache.ValkeyConfig{
			Addr:         c.Addr,
			Username:     c.Username,
			Password:     c.Password,
			DB:           c.DB,
			DialTimeout:  c.DialTimeout,
			ReadTimeout:  c.ReadTimeout,
			WriteTimeout: c.WriteTimeout,
			MaxRetries:   c.MaxRetries,
			TLS:          c.TLS,
		},
	}
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("LOGLENS_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.Analysis = cfg.Analysis.Normalize()
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging:  LoggingConfig{Level: "info", JSON: false},
		Analysis: models.DefaultAnalysisOptions(),
		Ingest:   IngestConfig{MaxLineBytes: ingest.DefaultMaxLineBytes},
		Cache: CacheConfig{
			Backend:      "memory",
			MaxEntries:   cache.DefaultMaxEntries,
			ResultTTL:    time.Hour,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOGLENS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("LOGLENS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	envDuration("LOGLENS_GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)
	if v := os.Getenv("LOGLENS_ALLOWED_ROOTS"); v != "" {
		cfg.Server.AllowedRoots = splitList(v)
	}
	if v := os.Getenv("LOGLENS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOGLENS_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v, ok := os.LookupEnv("LOGLENS_RULES_PATH"); ok {
		cfg.Rules.Path = v
	}

	if v := os.Getenv("LOGLENS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	envInt("LOGLENS_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	envDuration("LOGLENS_CACHE_RESULT_TTL", &cfg.Cache.ResultTTL)
	if v := os.Getenv("LOGLENS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("LOGLENS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("LOGLENS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	envInt("LOGLENS_CACHE_DB", &cfg.Cache.DB)
	envBool("LOGLENS_CACHE_TLS", &cfg.Cache.TLS)
	envDuration("LOGLENS_CACHE_DIAL_TIMEOUT", &cfg.Cache.DialTimeout)
	envDuration("LOGLENS_CACHE_READ_TIMEOUT", &cfg.Cache.ReadTimeout)
	envDuration("LOGLENS_CACHE_WRITE_TIMEOUT", &cfg.Cache.WriteTimeout)
	envInt("LOGLENS_CACHE_MAX_RETRIES", &cfg.Cache.MaxRetries)

	envInt("LOGLENS_BRUTE_FORCE_THRESHOLD", &cfg.Analysis.BruteForceThreshold)
	envInt("LOGLENS_BRUTE_FORCE_WINDOW", &cfg.Analysis.BruteForceWindowSeconds)
	envInt("LOGLENS_MAX_LINE_BYTES", &cfg.Ingest.MaxLineBytes)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
