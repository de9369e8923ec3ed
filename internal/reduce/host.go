// Package reduce implements the benchmarked sum strategies: two on the host
// and five device variants that differ only in how work-items map to data.
package reduce

import (
	"github.com/born-ml/sumbench/internal/parallel"
	"github.com/born-ml/sumbench/internal/workload"
)

// Sequential sums left to right with a single accumulator.
type Sequential struct {
	values []uint32
}

// NewSequential binds the strategy to w.
func NewSequential(w *workload.Workload) *Sequential {
	return &Sequential{values: w.Values()}
}

// Name implements bench.Reducer.
func (s *Sequential) Name() string { return "CPU" }

// Reset implements bench.Reducer; the accumulator is local to Reduce.
func (s *Sequential) Reset() error { return nil }

// Reduce implements bench.Reducer.
func (s *Sequential) Reduce() (uint32, error) {
	return sumRange(s.values), nil
}

// Parallel splits the workload across host workers, sums each chunk
// locally and combines the partials after the join.
type Parallel struct {
	values []uint32
	cfg    parallel.Config
}

// NewParallel binds the strategy to w.
func NewParallel(w *workload.Workload, cfg parallel.Config) *Parallel {
	return &Parallel{values: w.Values(), cfg: cfg}
}

// Name implements bench.Reducer.
func (p *Parallel) Name() string { return "CPU MT" }

// Reset implements bench.Reducer.
func (p *Parallel) Reset() error { return nil }

// Reduce implements bench.Reducer.
func (p *Parallel) Reduce() (uint32, error) {
	return parallel.Reduce(len(p.values), p.cfg, func(r parallel.Range) uint32 {
		return sumRange(p.values[r.Start:r.End])
	}), nil
}

func sumRange(values []uint32) uint32 {
	var sum uint32
	for _, v := range values {
		sum += v
	}
	return sum
}
