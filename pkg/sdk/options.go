package blacklab

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey" or "redis"; empty keeps the forward index in memory
	addrs     []string
	password  string
	keyPrefix string

	workers       int
	maxEntries    int
	maxEntryAge   time.Duration
	maxSearchTime time.Duration

	fetchMin    int
	maxRetrieve int
	maxCount    int
	contextSize int

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:     "blacklab:",
		maxEntries:    1000,
		maxEntryAge:   time.Hour,
		maxSearchTime: 30 * time.Second,
		fetchMin:      20,
	}
}

// WithValkey stores forward indexes in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores forward indexes in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the database key prefix. Default: "blacklab:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithWorkers bounds how many searches run at the same time.
// Defaults to the number of CPUs.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithCache sets the cache capacity and how long idle entries are kept.
// Defaults: 1000 entries, one hour.
func WithCache(maxEntries int, maxAge time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxEntries = maxEntries
		c.maxEntryAge = maxAge
	})
}

// WithMaxSearchTime sets how long a caller waits for a search before
// ErrSearchTimeout. The search itself keeps running. Default: 30s.
func WithMaxSearchTime(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxSearchTime = d
	})
}

// WithMaxHits limits how many hits are retrieved and counted per search.
// Zero means unlimited (default).
func WithMaxHits(retrieve, count int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetrieve = retrieve
		c.maxCount = count
	})
}

// WithContextSize sets the number of tokens shown on each side of a hit. Default: 5.
func WithContextSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.contextSize = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK and cache metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
