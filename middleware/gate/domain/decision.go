package domain

import "time"

// Verdict é o resultado da fase de admissão.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictRateLimited
	VerdictBanned
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictRateLimited:
		return "rate_limited"
	case VerdictBanned:
		return "banned"
	}
	return "unknown"
}

// BanStatus é a resposta do Ban Gate.
type BanStatus struct {
	Banned    bool
	Reason    string
	ExpiresAt time.Time
	// Degraded indica que o store compartilhado não respondeu.
	Degraded bool
}

// WindowResult é o resultado de checkAndIncrement.
type WindowResult struct {
	Allowed   bool
	Count     int64
	Remaining int
	ResetAt   time.Time
	Degraded  bool
}

// ViolationResult é o resultado de recordViolation.
type ViolationResult struct {
	Count    int64
	Banned   bool
	Degraded bool
}

// Screening é o resultado da triagem (Ban Gate + Heuristic Flagger),
// executada uma vez por requisição.
type Screening struct {
	Identity   Identity
	Ban        BanStatus
	Suspicious bool
}

// Admission é a decisão da pré-fase para um perfil. O mesmo chamador deve
// entregá-la de volta na pós-fase (Complete) junto com o status final.
type Admission struct {
	Identity Identity
	Profile  Profile
	Verdict  Verdict
	Window   WindowResult
	Delay    time.Duration
	// RetryAfter só é preenchido quando a requisição foi rejeitada.
	RetryAfter time.Duration
	Degraded   bool
}

func (a Admission) Allowed() bool { return a.Verdict == VerdictAllow }

// ClientStatus é a saída do Status Reporter.
type ClientStatus struct {
	Identity     Identity
	Banned       bool
	BanReason    string
	BanExpiresAt time.Time
	Violations   int64
	Degraded     bool
}

// StatusTooManyRequests é o status com que o gate rejeita por limite.
const StatusTooManyRequests = 429
