package domain

import (
	"strings"
	"time"
)

// Identity é a chave que distingue um cliente (derivada do endereço de rede).
//
// Não é verificada criptograficamente: a garantia é "best-effort por endereço
// observado", não "por usuário autenticado".
type Identity string

// FallbackIdentity agrupa todas as requisições sem endereço de origem.
const FallbackIdentity Identity = "unknown"

// NormalizeIdentity devolve a identidade limpa ou, se vazia, o bucket compartilhado.
func NormalizeIdentity(raw string) (Identity, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return FallbackIdentity, ErrInvalidIdentity
	}
	return Identity(v), nil
}

// RequestMeta são os metadados de entrada consumidos pelo gate.
type RequestMeta struct {
	Identity  Identity
	Method    string
	Path      string
	UserAgent string
	At        time.Time
}
