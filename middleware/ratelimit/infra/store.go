package infra

import (
	"context"
	"sync"
	"time"

	"player-gateway/middleware/ratelimit/domain"
)

// Store é uma implementação de infra de janela fixa por (chave, escopo),
// em memória, com limpeza periódica das janelas expiradas.
type Store struct {
	mu           sync.Mutex
	entries      map[windowKey]*storeEntry
	cleanupEvery time.Duration
	now          func() time.Time
}

type windowKey struct {
	scope domain.Scope
	key   domain.Key
}

type storeEntry struct {
	start time.Time
	count int
	size  time.Duration
}

type StoreOption func(*Store)

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// WithClock troca o relógio usado pelo Cleanup (testes).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries:      make(map[windowKey]*storeEntry),
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hit implementa domain.WindowStore.
func (s *Store) Hit(key domain.Key, scope domain.Scope, size time.Duration, now time.Time) domain.Window {
	k := windowKey{scope: scope, key: key}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[k]
	if !ok {
		ent = &storeEntry{}
		s.entries[k] = ent
	}
	if !ok || !now.Before(ent.start.Add(size)) {
		ent.start = now
		ent.count = 0
	}
	ent.size = size
	ent.count++
	return domain.Window{Start: ent.start, Count: ent.count}
}

// Len devolve o número de janelas residentes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove janelas cujo fim já passou; o próximo Hit recriaria do zero de qualquer forma.
func (s *Store) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !now.Before(ent.start.Add(ent.size)) {
			delete(s.entries, k)
		}
	}
}

// Serve roda a limpeza periódica até o ctx encerrar (compatível com suture.Service).
func (s *Store) Serve(ctx context.Context) error {
	if s.cleanupEvery <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	t := time.NewTicker(s.cleanupEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Cleanup()
		}
	}
}

func (s *Store) String() string { return "ratelimit-janitor" }
