// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisStore: reputation store compartilhado (scripts Lua, TxPipeline)
//   - MemoryStore: store local ao processo, com TTL e janitor
//   - FallbackStore: primário + local, com detecção de queda e sondagem (x/time/rate)
//   - Stats: eventos em memória, Redis e Prometheus
package infra
