// Package parallel provides fork-join helpers for host reductions.
// Every call fans out, joins and returns; no goroutines outlive it.
package parallel

import (
	"runtime"

	"github.com/grailbio/base/traverse"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Range is a half-open index interval [Start, End).
type Range struct {
	Start, End int
}

// Chunks splits [0, n) into at most cfg.NumWorkers contiguous ranges of at
// least cfg.MinChunkSize items. Disabled configs yield a single range.
func Chunks(n int, cfg Config) []Range {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*max(cfg.MinChunkSize, 1) {
		return []Range{{0, n}}
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	ranges := make([]Range, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		ranges = append(ranges, Range{start, min(start+chunkSize, n)})
	}
	return ranges
}

// Reduce evaluates fn on every chunk of [0, n) concurrently and combines the
// partial results with Combine after all workers joined.
func Reduce(n int, cfg Config, fn func(r Range) uint32) uint32 {
	ranges := Chunks(n, cfg)
	switch len(ranges) {
	case 0:
		return 0
	case 1:
		return fn(ranges[0])
	}

	partials := make([]uint32, len(ranges))
	// Workers only write their own slot, so the join is the only sync needed.
	_ = traverse.Limit(len(ranges)).Each(len(ranges), func(i int) error {
		partials[i] = fn(ranges[i])
		return nil
	})
	return Combine(partials)
}

// Combine adds partials pairwise, halving the active count each round.
// The slice is used as scratch space.
func Combine(partials []uint32) uint32 {
	if len(partials) == 0 {
		return 0
	}
	for active := len(partials); active > 1; {
		half := (active + 1) / 2
		for i := 0; i+half < active; i++ {
			partials[i] += partials[i+half]
		}
		active = half
	}
	return partials[0]
}
