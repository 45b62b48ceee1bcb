package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable indica que o reputation store compartilhado não respondeu.
	ErrStoreUnavailable = errors.New("reputation store unavailable")

	// ErrFallbackServed acompanha ErrStoreUnavailable quando o store local atendeu
	// a operação: o resultado retornado junto com o erro é válido.
	ErrFallbackServed = errors.New("served by local fallback store")

	// ErrStoreTimeout é um caso particular de ErrStoreUnavailable (a chamada estourou o prazo).
	ErrStoreTimeout = errors.New("reputation store timeout")

	// ErrInvalidIdentity sinaliza requisição sem endereço de origem.
	ErrInvalidIdentity = errors.New("invalid client identity")

	// ErrLogAppend sinaliza falha ao gravar no log de atividade suspeita (não fatal).
	ErrLogAppend = errors.New("suspicious log append failed")
)

// StoreError descreve uma falha de operação no store.
type StoreError struct {
	Op      string
	Key     string
	Timeout bool
	// Fallback indica que a operação foi atendida pelo store local.
	Fallback bool
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is faz com que toda StoreError case com ErrStoreUnavailable e, se for timeout,
// também com ErrStoreTimeout.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreUnavailable:
		return true
	case ErrStoreTimeout:
		return e.Timeout
	case ErrFallbackServed:
		return e.Fallback
	}
	return false
}

// Served informa se o resultado de uma operação no store é utilizável:
// sem erro, ou com erro mas atendida pelo fallback local.
func Served(err error) bool {
	return err == nil || errors.Is(err, ErrFallbackServed)
}
