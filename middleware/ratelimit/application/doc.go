// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Allow(key, scope, max) retorna uma Decision (allow/deny + retry-at).
package application
