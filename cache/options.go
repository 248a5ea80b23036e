package cache

import "time"

// EvictReason explica por que uma entrada saiu do cache.
type EvictReason int

const (
	// EvictTTL: expirada, removida na leitura.
	EvictTTL EvictReason = iota
	// EvictSweep: expirada, removida pelo Sweep periódico.
	EvictSweep
	// EvictDelete: removida explicitamente (Delete).
	EvictDelete
)

func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictSweep:
		return "sweep"
	case EvictDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Metrics expõe ganchos de observabilidade. NoopMetrics é o padrão.
type Metrics interface {
	Hit()
	Miss()
	// Coalesced: o chamador se juntou a um carregamento já em andamento.
	Coalesced()
	LoadFailed()
	Evict(reason EvictReason)
	Size(entries, pending int)
}

// Clock abstrai o relógio (testes).
type Clock interface{ Now() time.Time }

// ClockFunc adapta uma função para Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Options: zero value é válido.
//   - nil Clock       => time.Now
//   - nil Metrics     => NoopMetrics
//   - LoadTimeout <= 0 => sem limite além do que o próprio loader impõe
//   - SweepEvery <= 0 => Serve não varre (só expiração preguiçosa)
type Options struct {
	Clock       Clock
	Metrics     Metrics
	LoadTimeout time.Duration
	SweepEvery  time.Duration
}
