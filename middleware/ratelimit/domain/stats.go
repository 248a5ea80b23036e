package domain

import (
	"context"
	"time"
)

// StatsEvent é uma decisão do rate limit, já com o escopo da rota.
//
// Path é o padrão da rota (ex.: "/v1/audiofiles/{audiofileId}"), não o path
// cru: ids no path viram uma série por request em Redis/Prometheus.
// Key só deve ser persistida quando o store foi configurado para isso.
type StatsEvent struct {
	Key     Key
	Scope   Scope
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste as decisões (memória, Prometheus, Redis).
// Erro é best-effort: o middleware ignora e segue com o request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
