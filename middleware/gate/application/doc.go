// Package application contém os casos de uso do gate de requisições:
// Ban Gate, Window Counter, Progressive Delay, Violation Tracker,
// Heuristic Flagger e Status Reporter, além do pipeline em duas fases (Gate).
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Nenhum erro de store escapa daqui: toda falha vira uma decisão explícita
// de allow/deny, marcada como Degraded quando o store compartilhado não respondeu.
package application
