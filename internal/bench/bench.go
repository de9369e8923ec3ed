// Package bench implements the measurement protocol: every candidate runs a
// fixed number of trials, each trial is verified against the reference sum,
// and only verified trials are timed into the statistics.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/born-ml/sumbench/internal/stats"
	"github.com/born-ml/sumbench/internal/workload"
)

// Reducer is one reduction strategy bound to a workload.
type Reducer interface {
	// Name labels the strategy in reports.
	Name() string
	// Reset clears per-trial mutable state, such as a device accumulator.
	Reset() error
	// Reduce runs the strategy once and blocks until the sum is available.
	Reduce() (uint32, error)
}

// Candidate defers building a reducer until its turn, so device buffers of
// one strategy never coexist with another's. Reducers that implement
// io.Closer are closed when their run ends.
type Candidate struct {
	Name string
	New  func() (Reducer, error)
}

// Options configures a run.
type Options struct {
	Iterations int
	// Warmup trials are verified but not timed.
	Warmup int
	Logger *slog.Logger
}

// Result is the outcome of one strategy run.
type Result struct {
	Name    string
	N       int
	Summary stats.Summary
}

// State is the per-trial lifecycle of a strategy.
type State int

const (
	Idle             State = iota // waiting for the next trial
	AccumulatorReset              // per-trial state cleared
	Dispatched                    // blocking reduction in flight
	Completed                     // sum verified
	Aborted                       // terminal: the whole benchmark stops
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AccumulatorReset:
		return "accumulator-reset"
	case Dispatched:
		return "dispatched"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Run drives r through opts.Iterations verified trials and records their
// durations in trials, which is reset first. The first mismatching trial
// ends the run with a *ConsistencyError.
func Run(ctx context.Context, r Reducer, w *workload.Workload, opts Options, trials *stats.Trials) (Result, error) {
	if opts.Iterations <= 0 {
		return Result{}, fmt.Errorf("bench: iterations must be positive, got %d", opts.Iterations)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	trials.Reset()

	for i := 0; i < opts.Warmup; i++ {
		if err := trial(r, w, -1-i, log); err != nil {
			return Result{}, err
		}
	}

	for i := 0; i < opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("bench: %s: %w", r.Name(), err)
		}
		trials.Start()
		if err := trial(r, w, i, log); err != nil {
			return Result{}, err
		}
		trials.Stop()
	}

	return Result{
		Name:    r.Name(),
		N:       w.Len(),
		Summary: trials.Summarize(w.Len()),
	}, nil
}

// trial performs Idle → AccumulatorReset → Dispatched → Completed.
// Negative indices are warm-up trials.
func trial(r Reducer, w *workload.Workload, index int, log *slog.Logger) error {
	step := func(s State) {
		log.Debug("trial", "strategy", r.Name(), "trial", index, "state", s)
	}

	step(AccumulatorReset)
	if err := r.Reset(); err != nil {
		step(Aborted)
		return fmt.Errorf("bench: %s: reset: %w", r.Name(), err)
	}

	step(Dispatched)
	sum, err := r.Reduce()
	if err != nil {
		step(Aborted)
		return fmt.Errorf("bench: %s: reduce: %w", r.Name(), err)
	}

	if err := expectSame(w.ReferenceSum(), sum, r.Name()+" result should be consistent!"); err != nil {
		var ce *ConsistencyError
		if errors.As(err, &ce) {
			ce.Strategy = r.Name()
			ce.Trial = index
		}
		step(Aborted)
		return err
	}

	step(Completed)
	return nil
}

// RunAll runs the candidates one after another, handing each result to sink
// as soon as it is available. It stops at the first failure: no later
// candidate is built or run.
func RunAll(ctx context.Context, candidates []Candidate, w *workload.Workload, opts Options, sink func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		res, err := runCandidate(ctx, c, w, opts)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if sink != nil {
			sink(res)
		}
	}
	return results, nil
}

func runCandidate(ctx context.Context, c Candidate, w *workload.Workload, opts Options) (res Result, err error) {
	r, err := c.New()
	if err != nil {
		return Result{}, fmt.Errorf("bench: %s: setup: %w", c.Name, err)
	}
	if closer, ok := r.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("bench: %s: close: %w", c.Name, cerr)
			}
		}()
	}

	// A fresh statistics accumulator per strategy run.
	var trials stats.Trials
	return Run(ctx, r, w, opts, &trials)
}
