package domain

import (
	"context"
	"time"
)

// Counter é o valor de um contador após um incremento atômico.
type Counter struct {
	Value int64
	// ExpiresAt é zero quando a chave não expira.
	ExpiresAt time.Time
}

// Entry é um valor simples lido do store.
type Entry struct {
	Value     string
	ExpiresAt time.Time
}

// Store é o reputation store: chave-valor com TTL e incremento atômico.
//
// Toda implementação deve ser segura para uso concorrente. O incremento por
// identidade é a única operação que exige atomicidade e deve acontecer em uma
// única operação no store (nada de read-modify-write em duas idas).
type Store interface {
	// Increment soma 1 à chave. O ttl só é aplicado quando a chave nasce
	// (ou está sem expiração), o que dá a semântica de janela fixa.
	Increment(ctx context.Context, key string, ttl time.Duration) (Counter, error)

	// IncrementRefresh soma 1 e sempre renova o ttl.
	IncrementRefresh(ctx context.Context, key string, ttl time.Duration) (Counter, error)

	// Decrement subtrai 1 sem descer de zero e sem mexer no ttl.
	// Chave inexistente não é recriada.
	Decrement(ctx context.Context, key string) (int64, error)

	// Get retorna (entry, true) se a chave existe.
	Get(ctx context.Context, key string) (Entry, bool, error)

	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// AppendBounded insere value no início da lista e mantém só os maxLen mais recentes.
	AppendBounded(ctx context.Context, key, value string, maxLen int) error

	// Recent retorna até n itens da lista, do mais recente para o mais antigo.
	Recent(ctx context.Context, key string, n int) ([]string, error)
}

// Keys monta as chaves usadas no store.
type Keys struct {
	Prefix string
}

func (k Keys) join(parts ...string) string {
	out := k.Prefix
	for _, p := range parts {
		if out == "" {
			out = p
			continue
		}
		out += ":" + p
	}
	return out
}

func (k Keys) Window(class string, id Identity) string { return k.join("rl", class, string(id)) }
func (k Keys) Violations(id Identity) string          { return k.join("violations", string(id)) }
func (k Keys) Ban(id Identity) string                 { return k.join("blacklist", string(id)) }
func (k Keys) Suspicious() string                     { return k.join("suspicious_activity") }
