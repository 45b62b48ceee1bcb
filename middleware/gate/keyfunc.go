package gate

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extrai a identidade bruta do cliente; vazio vira o bucket compartilhado.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc usa, nesta ordem: o header configurado, os headers de proxy
// (só com trustProxy) e o host de RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		if trustProxy {
			if ip := forwardedIP(r.Header); ip != "" {
				return ip
			}
		}
		return remoteHost(r.RemoteAddr)
	}
}

// forwardedIP pega o primeiro salto do X-Forwarded-For, ou X-Real-IP.
func forwardedIP(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return strings.TrimSpace(h.Get("X-Real-IP"))
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
