package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hako/durafmt"
)

// Result é o resumo gravado em <results-dir>/<label>.json.
type Result struct {
	Label       string          `json:"label,omitempty"`
	Duration    time.Duration   `json:"duration"`
	Total       int             `json:"total"`
	Outcomes    map[Outcome]int `json:"outcomes"`
	Errors      map[string]int  `json:"errors,omitempty"`
	AvgLatency  time.Duration   `json:"avgLatency"`
	MinLatency  time.Duration   `json:"minLatency"`
	MaxLatency  time.Duration   `json:"maxLatency"`
	P50         time.Duration   `json:"p50"`
	P95         time.Duration   `json:"p95"`
	P99         time.Duration   `json:"p99"`
	RequestsSec float64         `json:"requestsPerSecond"`
}

func (r Result) rate(o Outcome) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Outcomes[o]) / float64(r.Total) * 100
}

// Blocked conta tudo que o gate recusou.
func (r Result) Blocked() int {
	return r.Outcomes[OutcomeRateLimited] + r.Outcomes[OutcomeBanned]
}

func summarize(samples []sample, elapsed time.Duration) Result {
	res := Result{
		Duration: elapsed,
		Total:    len(samples),
		Outcomes: map[Outcome]int{},
		Errors:   map[string]int{},
	}
	if len(samples) == 0 {
		return res
	}

	lats := make([]time.Duration, 0, len(samples))
	var sum time.Duration
	for _, s := range samples {
		res.Outcomes[s.outcome]++
		if s.errKey != "" {
			res.Errors[s.errKey]++
		}
		if s.outcome == OutcomeTimeout {
			continue
		}
		lats = append(lats, s.latency)
		sum += s.latency
	}
	if elapsed > 0 {
		res.RequestsSec = float64(res.Total) / elapsed.Seconds()
	}
	if len(lats) == 0 {
		return res
	}

	slices.Sort(lats)
	res.AvgLatency = sum / time.Duration(len(lats))
	res.MinLatency = lats[0]
	res.MaxLatency = lats[len(lats)-1]
	res.P50 = percentile(lats, 50)
	res.P95 = percentile(lats, 95)
	res.P99 = percentile(lats, 99)
	return res
}

// percentile usa nearest-rank sobre uma fatia já ordenada.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func resultPath(dir, label string) string {
	return filepath.Join(dir, label+".json")
}

func saveResult(dir, label string, r Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	r.Label = label
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	path := resultPath(dir, label)
	return path, os.WriteFile(path, raw, 0o644)
}

func loadResult(dir, label string) (Result, error) {
	raw, err := os.ReadFile(resultPath(dir, label))
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", label, err)
	}
	return r, nil
}

func human(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return durafmt.Parse(d.Round(time.Millisecond)).LimitFirstN(2).String()
}

func printResult(w io.Writer, label string, r Result) {
	fmt.Fprintf(w, "\n== %s ==\n", label)
	fmt.Fprintf(w, "duration:      %s\n", human(r.Duration))
	fmt.Fprintf(w, "total:         %d\n", r.Total)
	for _, o := range []Outcome{OutcomeSuccess, OutcomeFailed, OutcomeRateLimited, OutcomeBanned, OutcomeTimeout, OutcomeError} {
		fmt.Fprintf(w, "%-14s %d (%.2f%%)\n", string(o)+":", r.Outcomes[o], r.rate(o))
	}
	fmt.Fprintf(w, "latency:       avg %s  min %s  max %s\n", human(r.AvgLatency), human(r.MinLatency), human(r.MaxLatency))
	fmt.Fprintf(w, "percentiles:   p50 %s  p95 %s  p99 %s\n", human(r.P50), human(r.P95), human(r.P99))
	fmt.Fprintf(w, "throughput:    %.2f req/s\n", r.RequestsSec)
	if len(r.Errors) > 0 {
		keys := make([]string, 0, len(r.Errors))
		for k := range r.Errors {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		fmt.Fprintln(w, "errors:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %d\n", k, r.Errors[k])
		}
	}
	fmt.Fprintf(w, "blocked:       %d (%.2f%%)\n", r.Blocked(), r.rate(OutcomeRateLimited)+r.rate(OutcomeBanned))
}

func printComparison(w io.Writer, before, after Result) {
	fmt.Fprintln(w, "\n== comparison ==")
	fmt.Fprintf(w, "success rate:  %.2f%% -> %.2f%% (%+.2f%%)\n",
		before.rate(OutcomeSuccess), after.rate(OutcomeSuccess), after.rate(OutcomeSuccess)-before.rate(OutcomeSuccess))
	fmt.Fprintf(w, "blocked:       %d -> %d (%+d)\n", before.Blocked(), after.Blocked(), after.Blocked()-before.Blocked())
	fmt.Fprintf(w, "avg latency:   %s -> %s\n", human(before.AvgLatency), human(after.AvgLatency))
	fmt.Fprintf(w, "p95 latency:   %s -> %s\n", human(before.P95), human(after.P95))
	fmt.Fprintf(w, "throughput:    %.2f -> %.2f req/s\n", before.RequestsSec, after.RequestsSec)
	fmt.Fprintf(w, "duration:      %s -> %s\n", human(before.Duration), human(after.Duration))

	if after.Blocked() > before.Blocked() {
		fmt.Fprintf(w, "gate is working: %d additional requests refused\n", after.Blocked()-before.Blocked())
	} else {
		fmt.Fprintln(w, "no improvement detected, check the gate configuration")
	}
}
