// utilitários pequenos de formatação para headers e mensagens.

package gate

import (
	"strconv"
	"time"

	"github.com/hako/durafmt"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// formatSeconds arredonda para cima, como esperado em Retry-After / RateLimit-Reset.
func formatSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	s := int64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return strconv.FormatInt(s, 10)
}

// humanDuration gera textos como "15 minutes" ou "1 hour 5 minutes".
func humanDuration(d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}
