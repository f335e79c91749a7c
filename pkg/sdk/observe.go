package blacklab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// sdkMetrics count client calls per corpus. Clients sharing a registry share
// one set of collectors.
type sdkMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	registriesMu sync.Mutex
	registries   = map[prometheus.Registerer]*sdkMetrics{}
)

func metricsFor(reg prometheus.Registerer) (*sdkMetrics, error) {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	if m, ok := registries[reg]; ok {
		return m, nil
	}

	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blacklab",
			Subsystem: "sdk",
			Name:      "calls_total",
			Help:      "Client calls by operation, corpus and outcome.",
		}, []string{"operation", "corpus", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blacklab",
			Subsystem: "sdk",
			Name:      "call_duration_seconds",
			Help:      "Client call latency, including time spent waiting on shared searches.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("blacklab: register sdk metrics: %w", err)
		}
	}
	registries[reg] = m
	return m, nil
}

// outcome labels err for metrics and picks how loudly it is logged.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "unknown_corpus"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrSearchTimeout):
		return "timeout"
	case errors.Is(err, ErrInterruptedSearch), errors.Is(err, ErrIndexClosed):
		return "interrupted"
	default:
		return "failed"
	}
}

// observer logs and counts SDK calls. A nil observer records nothing.
type observer struct {
	logger  *zap.Logger
	metrics *sdkMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := metricsFor(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call is one observed SDK operation against a corpus. corpus is empty for
// operations that do not address one.
type call struct {
	o      *observer
	op     string
	corpus string
	fields []zap.Field
	start  time.Time
}

// begin starts observing op. fields describe the request and are logged
// with the outcome.
func (o *observer) begin(op, corpus string, fields ...zap.Field) *call {
	if o == nil {
		return nil
	}
	return &call{o: o, op: op, corpus: corpus, fields: fields, start: time.Now()}
}

// done records the outcome of c; result fields are logged on success only.
func (c *call) done(err error, result ...zap.Field) {
	if c == nil {
		return
	}
	dur := time.Since(c.start)
	kind := outcome(err)

	if m := c.o.metrics; m != nil {
		m.calls.WithLabelValues(c.op, c.corpus, kind).Inc()
		m.latency.WithLabelValues(c.op).Observe(dur.Seconds())
	}

	log := c.o.logger
	if log == nil {
		return
	}
	fields := make([]zap.Field, 0, len(c.fields)+len(result)+4)
	fields = append(fields, zap.String("op", c.op))
	if c.corpus != "" {
		fields = append(fields, zap.String("corpus", c.corpus))
	}
	fields = append(fields, c.fields...)
	fields = append(fields, zap.Duration("duration", dur))

	switch kind {
	case "ok":
		log.Debug("call completed", append(fields, result...)...)
	case "unknown_corpus", "invalid_query", "timeout", "interrupted":
		log.Info("call not served", append(fields, zap.String("outcome", kind), zap.Error(err))...)
	default:
		log.Warn("call failed", append(fields, zap.Error(err))...)
	}
}
