package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	var lats []time.Duration
	for i := 1; i <= 100; i++ {
		lats = append(lats, time.Duration(i)*time.Millisecond)
	}
	assert.Equal(t, 50*time.Millisecond, percentile(lats, 50))
	assert.Equal(t, 95*time.Millisecond, percentile(lats, 95))
	assert.Equal(t, 100*time.Millisecond, percentile(lats, 100))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestSummarize_SkipsTimeoutsInLatency(t *testing.T) {
	res := summarize([]sample{
		{outcome: OutcomeSuccess, latency: 10 * time.Millisecond},
		{outcome: OutcomeRateLimited, latency: 30 * time.Millisecond},
		{outcome: OutcomeTimeout, latency: 5 * time.Second},
	}, time.Second)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 20*time.Millisecond, res.AvgLatency)
	assert.Equal(t, 30*time.Millisecond, res.MaxLatency)
	assert.InDelta(t, 3.0, res.RequestsSec, 0.001)
}

func TestSaveLoadAndCompare(t *testing.T) {
	dir := t.TempDir()
	before := Result{Total: 10, Outcomes: map[Outcome]int{OutcomeSuccess: 10}, Duration: time.Second}
	after := Result{Total: 10, Outcomes: map[Outcome]int{OutcomeSuccess: 2, OutcomeRateLimited: 8}, Duration: 2 * time.Second}

	_, err := saveResult(dir, "before", before)
	require.NoError(t, err)
	_, err = saveResult(dir, "after", after)
	require.NoError(t, err)

	gotBefore, err := loadResult(dir, "before")
	require.NoError(t, err)
	gotAfter, err := loadResult(dir, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", gotAfter.Label)
	assert.Equal(t, 8, gotAfter.Blocked())

	var buf bytes.Buffer
	printComparison(&buf, gotBefore, gotAfter)
	assert.Contains(t, buf.String(), "gate is working: 8 additional requests refused")

	_, err = loadResult(dir, "missing")
	require.Error(t, err)
}
