package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrials_MeanStdDev(t *testing.T) {
	var tr Trials
	for _, d := range []time.Duration{2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second, 7 * time.Second, 9 * time.Second} {
		tr.record(d)
	}

	mean, std := tr.MeanStdDev()
	assert.InDelta(t, 5.0, mean, 1e-9)
	// Sample standard deviation of the classic 2,4,4,4,5,5,7,9 set.
	assert.InDelta(t, math.Sqrt(32.0/7.0), std, 1e-9)
	assert.Equal(t, 8, tr.Len())
}

func TestTrials_Edges(t *testing.T) {
	var tr Trials
	mean, std := tr.MeanStdDev()
	assert.Zero(t, mean)
	assert.Zero(t, std)
	assert.Zero(t, tr.Throughput(1000))

	tr.record(500 * time.Millisecond)
	mean, std = tr.MeanStdDev()
	assert.InDelta(t, 0.5, mean, 1e-12)
	assert.Zero(t, std)
}

func TestTrials_Throughput(t *testing.T) {
	var tr Trials
	tr.record(time.Second)
	tr.record(time.Second)
	assert.InDelta(t, 100.0, tr.Throughput(100_000_000), 1e-9)

	s := tr.Summarize(100_000_000)
	assert.Equal(t, 2, s.Trials)
	assert.Equal(t, time.Second, s.Mean)
	assert.Zero(t, s.StdDev)
	assert.InDelta(t, 100.0, s.Throughput, 1e-9)
}

func TestTrials_StartStop(t *testing.T) {
	var tr Trials
	tr.Start()
	time.Sleep(2 * time.Millisecond)
	d := tr.Stop()

	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.Equal(t, 1, tr.Len())

	tr.Reset()
	assert.Zero(t, tr.Len())
}
