// Package stats accumulates per-trial wall-clock durations of one strategy
// run and summarizes them.
package stats

import (
	"time"

	"cogentcore.org/core/base/timer"
	"gonum.org/v1/gonum/stat"
)

// Trials records lap durations. Create one per strategy run; the zero value
// is ready to use.
type Trials struct {
	tmr  timer.Time
	laps []float64 // seconds
}

// Summary is the reported view of a finished run.
type Summary struct {
	Trials int
	Mean   time.Duration
	StdDev time.Duration
	// Throughput in millions of elements per second.
	Throughput float64
}

// Start begins a lap.
func (t *Trials) Start() {
	t.tmr.Start()
}

// Stop ends the current lap and records it.
func (t *Trials) Stop() time.Duration {
	d := t.tmr.Stop()
	t.record(d)
	return d
}

func (t *Trials) record(d time.Duration) {
	t.laps = append(t.laps, d.Seconds())
}

// Reset drops every recorded lap.
func (t *Trials) Reset() {
	t.tmr.Reset()
	t.laps = t.laps[:0]
}

// Len returns the number of recorded laps.
func (t *Trials) Len() int {
	return len(t.laps)
}

// MeanStdDev returns the lap mean and sample standard deviation in seconds.
// A single lap has zero deviation.
func (t *Trials) MeanStdDev() (mean, std float64) {
	switch len(t.laps) {
	case 0:
		return 0, 0
	case 1:
		return t.laps[0], 0
	}
	return stat.MeanStdDev(t.laps, nil)
}

// Throughput returns n / mean in millions of elements per second.
func (t *Trials) Throughput(n int) float64 {
	mean, _ := t.MeanStdDev()
	if mean <= 0 {
		return 0
	}
	return float64(n) / 1e6 / mean
}

// Summarize reports the run over n elements.
func (t *Trials) Summarize(n int) Summary {
	mean, std := t.MeanStdDev()
	return Summary{
		Trials:     len(t.laps),
		Mean:       seconds(mean),
		StdDev:     seconds(std),
		Throughput: t.Throughput(n),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
