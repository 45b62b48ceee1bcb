package gate

import (
	"encoding/json"
	"net/http"
	"time"

	"request-gate/middleware/gate/domain"
)

// rejection é o corpo das respostas produzidas pelo próprio gate.
type rejection struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfter        string `json:"retryAfter,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
	Contact           string `json:"contact,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setRateLimitHeaders(w http.ResponseWriter, adm domain.Admission, now time.Time) {
	h := w.Header()
	h.Set("RateLimit-Limit", formatInt(adm.Profile.Max))
	h.Set("RateLimit-Remaining", formatInt(adm.Window.Remaining))
	if !adm.Window.ResetAt.IsZero() {
		h.Set("RateLimit-Reset", formatSeconds(adm.Window.ResetAt.Sub(now)))
	}
}

func writeRateLimited(w http.ResponseWriter, adm domain.Admission, now time.Time) {
	retry := adm.RetryAfter
	if retry <= 0 {
		retry = time.Second
	}
	w.Header().Set("Retry-After", formatSeconds(retry))

	msg := adm.Profile.Message
	if msg == "" {
		msg = "You have exceeded the maximum number of requests. Please try again in " + humanDuration(retry) + "."
	}
	body := rejection{
		Error:      "Too many requests",
		Message:    msg,
		RetryAfter: now.Add(retry).UTC().Format(time.RFC3339),
	}
	if adm.Profile.SkipSuccessful {
		zero := 0
		body.RemainingAttempts = &zero
	}
	writeJSON(w, http.StatusTooManyRequests, body)
}

func writeBanned(w http.ResponseWriter, ban domain.BanStatus, contact string, now time.Time) {
	body := rejection{
		Error:   "Access Denied",
		Message: "Your IP has been temporarily blocked due to suspicious activity",
		Contact: contact,
	}
	if !ban.ExpiresAt.IsZero() && ban.ExpiresAt.After(now) {
		retry := ban.ExpiresAt.Sub(now)
		w.Header().Set("Retry-After", formatSeconds(retry))
		body.RetryAfter = ban.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusForbidden, body)
}
