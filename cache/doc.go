// Package cache implementa um cache em memória com coalescência de requisições
// (single-flight): para uma mesma chave, no máximo um carregamento roda por vez,
// e todos os chamadores concorrentes recebem o mesmo resultado.
//
// Regras:
//
//   - uma entrada é fresca enquanto now - storedAt < ttl (com age == ttl ela já expirou);
//   - a decisão "fresca? pendente? vira líder" é tomada sob um único mutex;
//   - o loader roda desacoplado do ctx do líder (context.WithoutCancel + LoadTimeout):
//     um chamador que desiste não cancela o carregamento compartilhado;
//   - erros nunca são cacheados e chegam iguais a todos os que esperavam;
//   - expiração é preguiçosa na leitura, mais Sweep periódico (Serve).
package cache
