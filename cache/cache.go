package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLoaderPanic embrulha um panic do loader; entregue a todos os que esperavam.
var ErrLoaderPanic = errors.New("cache: loader panicked")

// Loader busca o valor de uma chave ausente ou expirada.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) fresh(now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// fetch é o carregamento pendente de uma chave. val/err são publicados antes de
// close(done); quem lê depois de <-done enxerga os valores finais.
type fetch[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Cache é seguro para uso concorrente. Todo o estado é local ao processo.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	pending map[string]*fetch[V]

	clock       Clock
	metrics     Metrics
	loadTimeout time.Duration
	sweepEvery  time.Duration
}

func New[V any](opts Options) *Cache[V] {
	c := &Cache[V]{
		entries:     make(map[string]entry[V]),
		pending:     make(map[string]*fetch[V]),
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		loadTimeout: opts.LoadTimeout,
		sweepEvery:  opts.SweepEvery,
	}
	if c.clock == nil {
		c.clock = ClockFunc(time.Now)
	}
	if c.metrics == nil {
		c.metrics = NoopMetrics{}
	}
	return c
}

// Get devolve o valor fresco de key, ou se junta ao carregamento pendente, ou
// vira líder e dispara loader. ttl <= 0: o valor é entregue mas não guardado.
//
// Se ctx encerrar antes do resultado, Get devolve ctx.Err(); o carregamento
// continua e o resultado ainda é guardado para os próximos.
func (c *Cache[V]) Get(ctx context.Context, key string, ttl time.Duration, loader Loader[V]) (V, error) {
	c.mu.Lock()
	now := c.clock.Now()

	expired := false
	if e, ok := c.entries[key]; ok {
		if e.fresh(now) {
			c.mu.Unlock()
			c.metrics.Hit()
			return e.value, nil
		}
		delete(c.entries, key)
		expired = true
	}

	if f, ok := c.pending[key]; ok {
		c.mu.Unlock()
		c.metrics.Coalesced()
		return wait(ctx, f)
	}

	f := &fetch[V]{done: make(chan struct{})}
	c.pending[key] = f
	entries, pending := len(c.entries), len(c.pending)
	c.mu.Unlock()

	c.metrics.Miss()
	if expired {
		c.metrics.Evict(EvictTTL)
	}
	c.metrics.Size(entries, pending)

	go c.load(context.WithoutCancel(ctx), key, ttl, f, loader)
	return wait(ctx, f)
}

func (c *Cache[V]) load(ctx context.Context, key string, ttl time.Duration, f *fetch[V], loader Loader[V]) {
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}

	v, err := call(ctx, loader)

	c.mu.Lock()
	if err == nil && ttl > 0 {
		c.entries[key] = entry[V]{value: v, storedAt: c.clock.Now(), ttl: ttl}
	}
	delete(c.pending, key)
	entries, pending := len(c.entries), len(c.pending)
	c.mu.Unlock()

	f.val, f.err = v, err
	close(f.done)

	if err != nil {
		c.metrics.LoadFailed()
	}
	c.metrics.Size(entries, pending)
}

func call[V any](ctx context.Context, loader Loader[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v, err = zero, fmt.Errorf("%w: %v", ErrLoaderPanic, r)
		}
	}()
	return loader(ctx)
}

func wait[V any](ctx context.Context, f *fetch[V]) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Delete remove a entrada de key e informa se havia uma entrada fresca.
// Um carregamento em andamento para key não é cancelado.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	fresh := ok && e.fresh(c.clock.Now())
	delete(c.entries, key)
	entries, pending := len(c.entries), len(c.pending)
	c.mu.Unlock()

	if ok {
		c.metrics.Evict(EvictDelete)
		c.metrics.Size(entries, pending)
	}
	return fresh
}

// Sweep remove todas as entradas expiradas e devolve quantas saíram.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	now := c.clock.Now()
	removed := 0
	for k, e := range c.entries {
		if !e.fresh(now) {
			delete(c.entries, k)
			removed++
		}
	}
	entries, pending := len(c.entries), len(c.pending)
	c.mu.Unlock()

	for i := 0; i < removed; i++ {
		c.metrics.Evict(EvictSweep)
	}
	c.metrics.Size(entries, pending)
	return removed
}

// Serve roda Sweep a cada SweepEvery até ctx encerrar (compatível com suture.Service).
func (c *Cache[V]) Serve(ctx context.Context) error {
	if c.sweepEvery <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	t := time.NewTicker(c.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			c.Sweep()
		}
	}
}

func (c *Cache[V]) String() string { return "cache-sweeper" }

// Len devolve o número de entradas residentes (inclusive expiradas ainda não varridas).
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Pending devolve o número de carregamentos em andamento.
func (c *Cache[V]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
