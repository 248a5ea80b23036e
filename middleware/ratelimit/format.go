// utilitário pequeno para formatação rápida/consistente de valores numéricos em headers/logs.
// Evita puxar fmt só para formatação simples.

package ratelimit

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

// formatSeconds arredonda para cima: Retry-After=0 faria o cliente tentar antes da janela virar.
func formatSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return strconv.FormatInt(secs, 10)
}
