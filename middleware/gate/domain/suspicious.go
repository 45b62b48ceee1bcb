package domain

import "time"

// SuspiciousEntry é um item do log de auditoria limitado.
type SuspiciousEntry struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Rules são as listas de padrões usadas pelo Heuristic Flagger.
// Todas as comparações são case-insensitive.
type Rules struct {
	// AutomationMarkers marcam ferramentas de automação/varredura no user-agent.
	AutomationMarkers []string `yaml:"automationMarkers"`
	// APIClients são ferramentas de teste de API, suspeitas só em rotas de autenticação.
	APIClients []string `yaml:"apiClients"`
	// AuthPaths são segmentos de caminho que identificam rotas de autenticação.
	AuthPaths []string `yaml:"authPaths"`
}

func DefaultRules() Rules {
	return Rules{
		AutomationMarkers: []string{"bot", "attack", "scan", "sqlmap", "nikto"},
		APIClients:        []string{"curl", "postman", "insomnia", "httpie", "python-requests"},
		AuthPaths:         []string{"login", "signin", "auth"},
	}
}
