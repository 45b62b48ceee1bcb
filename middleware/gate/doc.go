// Package gate fornece adapters HTTP (net/http) para o gate de requisições:
// banimento, detecção de atividade suspeita, limite por janela fixa, atraso
// progressivo e escalada de violações.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (Screen/Admit/Wait/Complete) sem net/http
//   - infra: reputation store (Redis, memória, fallback) e estatísticas
//   - gate (este pacote): middlewares HTTP + extração de chave + tradução para status/headers/JSON
//
// Fluxo por requisição:
//
//  1. Extrai a identidade do cliente (IP/header/XFF)
//  2. Guard: se banido, responde 403 e encerra; senão, roda o Heuristic Flagger
//  3. Limit: conta a requisição no perfil; acima do limite responde 429 e
//     registra a violação (pós-fase)
//  4. Se permitido, aplica o atraso progressivo e chama o próximo handler
//  5. Perfis com SkipSuccessful devolvem a contagem quando a resposta foi de sucesso
//
// Variáveis de ambiente dos binários (cmd/gateway, cmd/example-server) controlam
// o comportamento; veja internal/config.
package gate
