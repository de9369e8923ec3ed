package config

import (
	"flag"
	"io"
	"runtime"
	"testing"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.RegisterFlags(fs)
	err := fs.Parse(args)
	return cfg, err
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100_000_000, cfg.N)
	assert.Equal(t, 10, cfg.Iterations)
	assert.Equal(t, device.DefaultGroupSize, cfg.GroupSize)
	assert.Equal(t, device.Auto, cfg.Device)
	assert.NoError(t, cfg.Validate())
}

func TestRegisterFlags(t *testing.T) {
	cfg, err := parse(t,
		"-n", "1000", "-iters", "3", "-warmup", "1", "-seed", "7",
		"-group-size", "64", "-device", "emu", "-workers", "2",
		"-strategies", "sequential, tree,,cycle", "-summary=false", "-v")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.N)
	assert.Equal(t, 3, cfg.Iterations)
	assert.Equal(t, 1, cfg.Warmup)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 64, cfg.GroupSize)
	assert.Equal(t, "emu", cfg.Device)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"sequential", "tree", "cycle"}, cfg.Strategies)
	assert.False(t, cfg.Summary)
	assert.True(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero n", []string{"-n", "0"}},
		{"n too large for non-zero values", []string{"-n", "5000000000"}},
		{"zero iterations", []string{"-iters", "0"}},
		{"negative warmup", []string{"-warmup", "-1"}},
		{"zero group size", []string{"-group-size", "0"}},
		{"negative workers", []string{"-workers", "-1"}},
		{"unknown strategy", []string{"-strategies", "bogus"}},
		{"tree with odd group size", []string{"-group-size", "24", "-strategies", "tree"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parse(t, tt.args...)
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}

	// Non-power-of-two groups are fine without the tree variant.
	cfg, err := parse(t, "-group-size", "24", "-strategies", "cycle,local_mem_main_thread")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestParallelConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), cfg.ParallelConfig().NumWorkers)

	cfg.Workers = 1
	assert.False(t, cfg.ParallelConfig().Enabled)

	cfg.Workers = 3
	pc := cfg.ParallelConfig()
	assert.True(t, pc.Enabled)
	assert.Equal(t, 3, pc.NumWorkers)
}
