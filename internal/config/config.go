package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the blacklab server configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Database DatabaseConfig `yaml:"database"`
	Corpora  []CorpusConfig `yaml:"corpora"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig bounds the search cache. Zero disables a limit.
type CacheConfig struct {
	MaxEntries         int `yaml:"max_entries"`
	MaxEntryAgeSec     int `yaml:"max_entry_age_sec"`
	MaxSearchTimeSec   int `yaml:"max_search_time_sec"`
	CleanupIntervalSec int `yaml:"cleanup_interval_sec"`
}

// SearchConfig holds search execution and paging settings.
type SearchConfig struct {
	Workers            int `yaml:"workers"`
	FetchMin           int `yaml:"fetch_min"`
	MaxHitsToRetrieve  int `yaml:"max_hits_to_retrieve"`
	MaxHitsToCount     int `yaml:"max_hits_to_count"`
	ContextSize        int `yaml:"context_size"`
	ContextParallelism int `yaml:"context_parallelism"`
}

// DatabaseConfig holds the optional forward-index store connection.
// With no addrs, forward indexes are served from memory.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// CorpusConfig names a directory of *.txt documents to index at startup.
type CorpusConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// MaxEntryAge returns the cache entry age limit.
func (c CacheConfig) MaxEntryAge() time.Duration { return seconds(c.MaxEntryAgeSec) }

// MaxSearchTime returns how long a caller waits for a running search.
func (c CacheConfig) MaxSearchTime() time.Duration { return seconds(c.MaxSearchTimeSec) }

// CleanupInterval returns the housekeeping period.
func (c CacheConfig) CleanupInterval() time.Duration { return seconds(c.CleanupIntervalSec) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1000
	}
	if c.Cache.MaxEntryAgeSec <= 0 {
		c.Cache.MaxEntryAgeSec = 3600
	}
	if c.Cache.MaxSearchTimeSec <= 0 {
		c.Cache.MaxSearchTimeSec = 30
	}
	if c.Cache.CleanupIntervalSec <= 0 {
		c.Cache.CleanupIntervalSec = 60
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = runtime.NumCPU()
	}
	if c.Search.FetchMin <= 0 {
		c.Search.FetchMin = 20
	}
	if c.Search.ContextSize <= 0 {
		c.Search.ContextSize = 5
	}
	if c.Search.ContextParallelism <= 0 {
		c.Search.ContextParallelism = 4
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "blacklab:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Search.MaxHitsToRetrieve < 0 || c.Search.MaxHitsToCount < 0 {
		return fmt.Errorf("search.max_hits_to_retrieve and search.max_hits_to_count must not be negative")
	}
	if c.Search.MaxHitsToCount > 0 && c.Search.MaxHitsToRetrieve > c.Search.MaxHitsToCount {
		return fmt.Errorf("search.max_hits_to_retrieve (%d) exceeds search.max_hits_to_count (%d)",
			c.Search.MaxHitsToRetrieve, c.Search.MaxHitsToCount)
	}
	if len(c.Corpora) == 0 {
		return fmt.Errorf("at least one corpus is required")
	}
	seen := make(map[string]bool, len(c.Corpora))
	for i, corpus := range c.Corpora {
		if corpus.Name == "" || corpus.Path == "" {
			return fmt.Errorf("corpora[%d]: name and path are required", i)
		}
		if seen[corpus.Name] {
			return fmt.Errorf("corpora[%d]: duplicate corpus name %q", i, corpus.Name)
		}
		seen[corpus.Name] = true
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
