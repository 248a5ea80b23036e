// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: janelas fixas por (chave, escopo) em memória, com janitor
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore / MultiStatsStore: estatísticas das decisões
package infra
