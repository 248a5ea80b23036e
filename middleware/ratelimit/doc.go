// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny por janela fixa, acquire/timeout) sem net/http
//   - infra: implementações concretas (janelas em memória, semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (identidade anônima; fallback IP/header/XFF)
//  2. Chama a camada application com o escopo e a quota da rota
//  3. Se bloqueado, responde 429 com Retry-After (rate limit) ou 503 (concorrência)
//  4. Se permitido, chama o próximo handler
//
// A janela é fixa: um cliente pode fazer até 2×max requests em volta da
// virada da janela.
package ratelimit
