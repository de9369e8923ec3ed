// Package config holds the settings of a benchmark run and binds them to
// command line flags.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/born-ml/sumbench/internal/parallel"
	"github.com/born-ml/sumbench/internal/reduce"
	"github.com/born-ml/sumbench/internal/workload"
)

// Config controls one benchmark run.
type Config struct {
	N          int      // Workload length.
	Iterations int      // Timed trials per strategy.
	Warmup     int      // Untimed, verified trials per strategy.
	Seed       uint64   // Workload generator seed.
	GroupSize  int      // Work-group size of the device strategies.
	Device     string   // Backend name or device.Auto.
	Workers    int      // Host workers of the parallel strategy; 0 means one per CPU.
	Strategies []string // Strategy names; empty means all.
	Summary    bool     // Print a comparison table at the end.
	Verbose    bool     // Debug logging of every trial.

	ListDevices bool // Print the registered backends and exit.
}

// DefaultConfig returns the settings of the reference benchmark.
func DefaultConfig() Config {
	return Config{
		N:          100 * 1000 * 1000,
		Iterations: 10,
		Seed:       42,
		GroupSize:  device.DefaultGroupSize,
		Device:     device.Auto,
		Summary:    true,
	}
}

// RegisterFlags binds c to fs, using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.N, "n", c.N, "number of elements to sum")
	fs.IntVar(&c.Iterations, "iters", c.Iterations, "timed trials per strategy")
	fs.IntVar(&c.Warmup, "warmup", c.Warmup, "untimed verified trials per strategy")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "workload generator seed")
	fs.IntVar(&c.GroupSize, "group-size", c.GroupSize, "device work-group size")
	fs.StringVar(&c.Device, "device", c.Device, "device backend ("+device.Auto+" or a registered name)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "host workers for the parallel strategy (0 = one per CPU)")
	fs.Func("strategies", "comma separated strategies: "+strings.Join(reduce.StrategyNames(), ",")+" (default all)", func(s string) error {
		c.Strategies = nil
		for _, name := range strings.Split(s, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Strategies = append(c.Strategies, name)
			}
		}
		return nil
	})
	fs.BoolVar(&c.Summary, "summary", c.Summary, "print a comparison table at the end")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "log every trial")
	fs.BoolVar(&c.ListDevices, "list-devices", c.ListDevices, "list device backends and exit")
}

// Validate reports settings that cannot produce a run.
func (c Config) Validate() error {
	switch {
	case c.N <= 0:
		return fmt.Errorf("config: n must be positive, got %d", c.N)
	case workload.Bound(c.N) == 0:
		return fmt.Errorf("config: n=%d leaves no room for non-zero values in a uint32 sum", c.N)
	case c.Iterations <= 0:
		return fmt.Errorf("config: iters must be positive, got %d", c.Iterations)
	case c.Warmup < 0:
		return fmt.Errorf("config: warmup must not be negative, got %d", c.Warmup)
	case c.GroupSize <= 0:
		return fmt.Errorf("config: group-size must be positive, got %d", c.GroupSize)
	case c.Workers < 0:
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	sel, err := reduce.Select(c.Strategies)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, v := range sel.Variants {
		if err := v.Validate(c.GroupSize); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// ParallelConfig returns the host fan-out settings.
func (c Config) ParallelConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	if c.Workers > 0 {
		cfg.NumWorkers = c.Workers
		cfg.Enabled = c.Workers > 1
	}
	return cfg
}
