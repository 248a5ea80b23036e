package application

import (
	"time"

	"player-gateway/middleware/ratelimit/domain"
)

// DefaultWindow é o tamanho padrão da janela fixa (quota "por minuto").
const DefaultWindow = time.Minute

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.WindowStore
	WindowSize time.Duration
	// Now permite relógio falso nos testes. Nil => time.Now.
	Now func() time.Time
}

// Allow conta mais uma requisição para (key, scope) e decide se ela cabe em
// maxPerWindow. Quando bloqueia, RetryAt é o fim da janela atual.
func (s Service) Allow(key domain.Key, scope domain.Scope, maxPerWindow int) domain.Decision {
	if s.Store == nil || maxPerWindow <= 0 {
		return domain.Decision{Allowed: true, Limit: maxPerWindow}
	}
	size := s.WindowSize
	if size <= 0 {
		size = DefaultWindow
	}

	now := s.now()
	w := s.Store.Hit(key, scope, size, now)
	resetAt := w.ResetAt(size)

	if w.Count > maxPerWindow {
		retry := resetAt.Sub(now)
		if retry < 0 {
			retry = 0
		}
		return domain.Decision{
			Allowed:    false,
			Limit:      maxPerWindow,
			RetryAt:    resetAt,
			RetryAfter: retry,
		}
	}
	return domain.Decision{
		Allowed:   true,
		Limit:     maxPerWindow,
		Remaining: maxPerWindow - w.Count,
		RetryAt:   resetAt,
	}
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
