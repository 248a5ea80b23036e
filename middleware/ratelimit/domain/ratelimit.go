package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Key identifica o cliente (identidade anônima, IP, header...).
type Key string

// Scope separa quotas independentes para a mesma chave (ex: "embed", "track").
// Cada par (Key, Scope) tem a sua própria janela.
type Scope string

// Window é o contador de janela fixa de um par (Key, Scope).
//
// Invariante: Count volta a 0 sempre que now >= Start + tamanho da janela.
type Window struct {
	Start time.Time
	Count int
}

// ResetAt devolve o instante em que a janela expira.
func (w Window) ResetAt(size time.Duration) time.Time {
	return w.Start.Add(size)
}

// WindowStore guarda as janelas por (Key, Scope).
//
// Hit deve ser atômico: se a janela expirou, reinicia (Count=0, Start=now);
// depois incrementa Count e devolve a janela atualizada.
type WindowStore interface {
	Hit(key Key, scope Scope, size time.Duration, now time.Time) Window
}

type Decision struct {
	Allowed bool
	Limit   int
	// Remaining é quanto ainda cabe na janela atual (nunca negativo).
	Remaining int
	// RetryAt é o fim da janela atual; só tem significado quando bloqueado.
	RetryAt time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// SlotPool representa um recurso com capacidade finita (ex: requests concorrentes
// no gateway). Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar;
// o release retornado deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
