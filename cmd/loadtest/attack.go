package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"golang.org/x/time/rate"
)

// Plan descreve uma rajada.
type Plan struct {
	Target      string
	Concurrency int
	Total       int
	// Rate limita o ritmo de disparo; 0 dispara assim que houver vaga.
	Rate    float64
	Timeout time.Duration
}

var presets = map[string]Plan{
	"light":    {Concurrency: 5, Total: 50},
	"moderate": {Concurrency: 10, Total: 100},
	"heavy":    {Concurrency: 20, Total: 200},
	"extreme":  {Concurrency: 50, Total: 500},
	"massive":  {Concurrency: 100, Total: 10000},
}

type credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var fakeCredentials = []credential{
	{Email: "admin@example.com", Password: "admin123"},
	{Email: "user@example.com", Password: "user123"},
	{Email: "test@test.com", Password: "test123"},
	{Email: "hacker@evil.com", Password: "password"},
	{Email: "attacker@ddos.com", Password: "123456"},
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X)",
	"PostmanRuntime/7.26.8",
}

// Outcome classifica uma resposta.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeBanned      Outcome = "banned"
	OutcomeFailed      Outcome = "failed"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
)

func classify(status int, err error) (Outcome, string) {
	if err != nil {
		var ne net.Error
		if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return OutcomeTimeout, ""
		}
		return OutcomeError, "TRANSPORT"
	}
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess, ""
	case status == http.StatusTooManyRequests:
		return OutcomeRateLimited, ""
	case status == http.StatusForbidden:
		return OutcomeBanned, ""
	default:
		return OutcomeFailed, "HTTP_" + strconv.Itoa(status)
	}
}

type sample struct {
	outcome Outcome
	errKey  string
	latency time.Duration
}

// Attacker executa um Plan e agrega as respostas.
type Attacker struct {
	plan   Plan
	client *http.Client

	mu      sync.Mutex
	samples []sample
}

func NewAttacker(plan Plan) *Attacker {
	if plan.Concurrency <= 0 {
		plan.Concurrency = 1
	}
	if plan.Timeout <= 0 {
		plan.Timeout = 5 * time.Second
	}
	return &Attacker{
		plan:   plan,
		client: &http.Client{Timeout: plan.Timeout},
	}
}

func (a *Attacker) Run(ctx context.Context) Result {
	var limiter *rate.Limiter
	if a.plan.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(a.plan.Rate), 1)
	}

	swg := sizedwaitgroup.New(a.plan.Concurrency)
	start := time.Now()
	for i := 0; i < a.plan.Total; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		if err := swg.AddWithContext(ctx); err != nil {
			break
		}
		go func() {
			defer swg.Done()
			a.record(a.fire(ctx))
		}()
	}
	swg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	return summarize(a.samples, time.Since(start))
}

func (a *Attacker) fire(ctx context.Context) sample {
	cred := fakeCredentials[rand.Intn(len(fakeCredentials))]
	body, _ := json.Marshal(cred)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.plan.Target, bytes.NewReader(body))
	if err != nil {
		return sample{outcome: OutcomeError, errKey: "BAD_REQUEST"}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	start := time.Now()
	resp, err := a.client.Do(req)
	lat := time.Since(start)
	status := 0
	if err == nil {
		status = resp.StatusCode
		_ = resp.Body.Close()
	}
	out, key := classify(status, err)
	return sample{outcome: out, errKey: key, latency: lat}
}

func (a *Attacker) record(s sample) {
	a.mu.Lock()
	a.samples = append(a.samples, s)
	a.mu.Unlock()
}
