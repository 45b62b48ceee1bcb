// Package domain define contratos e tipos de domínio do gate de requisições:
// identidade do cliente, perfis de limite, decisões de admissão e o contrato
// do reputation store compartilhado.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura (Redis, memória local).
package domain
