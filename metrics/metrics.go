// Package metrics exporta para Prometheus o que o gateway mede: cache,
// decisões de rate limit e estado do circuit breaker da Content API.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"player-gateway/cache"
	"player-gateway/middleware/ratelimit/domain"
)

const namespace = "player_gateway"

// NewRegistry cria um registry com os collectors padrão de processo e runtime.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// CacheAdapter implementa cache.Metrics.
type CacheAdapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	coalesced prometheus.Counter
	failures  prometheus.Counter
	evicts    *prometheus.CounterVec
	entries   prometheus.Gauge
	pending   prometheus.Gauge
}

func NewCacheAdapter(reg prometheus.Registerer) *CacheAdapter {
	a := &CacheAdapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Requests served from a fresh cache entry",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Requests that started an upstream load",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "coalesced_total",
			Help: "Requests that joined an in-flight load",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "load_failures_total",
			Help: "Loads that ended in error",
		}),
		evicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "evictions_total",
			Help: "Cache evictions by reason",
		}, []string{"reason"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "entries",
			Help: "Resident cache entries",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "pending_loads",
			Help: "In-flight upstream loads",
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.coalesced, a.failures, a.evicts, a.entries, a.pending)
	return a
}

func (a *CacheAdapter) Hit()        { a.hits.Inc() }
func (a *CacheAdapter) Miss()       { a.misses.Inc() }
func (a *CacheAdapter) Coalesced()  { a.coalesced.Inc() }
func (a *CacheAdapter) LoadFailed() { a.failures.Inc() }

func (a *CacheAdapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

func (a *CacheAdapter) Size(entries, pending int) {
	a.entries.Set(float64(entries))
	a.pending.Set(float64(pending))
}

var _ cache.Metrics = (*CacheAdapter)(nil)

// RateLimitStats implementa domain.StatsStore contando decisões por escopo.
// A chave do cliente não vira label (cardinalidade).
type RateLimitStats struct {
	decisions *prometheus.CounterVec
}

func NewRateLimitStats(reg prometheus.Registerer) *RateLimitStats {
	s := &RateLimitStats{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ratelimit", Name: "decisions_total",
			Help: "Rate limit decisions by scope and outcome",
		}, []string{"scope", "outcome"}),
	}
	reg.MustRegister(s.decisions)
	return s
}

func (s *RateLimitStats) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	s.decisions.WithLabelValues(string(ev.Scope), outcome).Inc()
	return nil
}

var _ domain.StatsStore = (*RateLimitStats)(nil)

// Breaker acompanha o circuit breaker da Content API.
type Breaker struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

func NewBreaker(reg prometheus.Registerer) *Breaker {
	b := &Breaker{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "upstream", Name: "breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "upstream", Name: "breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),
	}
	reg.MustRegister(b.state, b.transitions)
	return b
}

// OnStateChange tem a assinatura de upstream.StateHook.
func (b *Breaker) OnStateChange(name string, from, to gobreaker.State) {
	b.state.WithLabelValues(name).Set(stateValue(to))
	b.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// RegisterConcurrency exporta a ocupação do limite de concorrência.
func RegisterConcurrency(reg prometheus.Registerer, inUse func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
		Help: "Requests holding a concurrency slot",
	}, func() float64 { return float64(inUse()) }))
}
