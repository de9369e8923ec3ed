package parallel

import (
	"sync/atomic"
	"testing"
)

func TestChunks_Cover(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 7, MinChunkSize: 10}

	for _, n := range []int{1, 9, 19, 20, 21, 100, 1001} {
		ranges := Chunks(n, cfg)
		if len(ranges) > cfg.NumWorkers {
			t.Errorf("n=%d: %d chunks for %d workers", n, len(ranges), cfg.NumWorkers)
		}
		next := 0
		for _, r := range ranges {
			if r.Start != next || r.End <= r.Start {
				t.Fatalf("n=%d: bad range %+v after %d", n, r, next)
			}
			next = r.End
		}
		if next != n {
			t.Errorf("n=%d: chunks end at %d", n, next)
		}
	}
}

func TestChunks_Sequential(t *testing.T) {
	cfg := Config{Enabled: false, NumWorkers: 8, MinChunkSize: 1}
	ranges := Chunks(1000, cfg)
	if len(ranges) != 1 || ranges[0] != (Range{0, 1000}) {
		t.Errorf("Expected a single range, got %v", ranges)
	}
	if got := Chunks(0, cfg); got != nil {
		t.Errorf("Expected no ranges for n=0, got %v", got)
	}
}

func TestDefaultConfig_SplitsSmallInputs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled, cfg.NumWorkers = true, 8

	if got := len(Chunks(1000, cfg)); got != 8 {
		t.Errorf("Expected 1000 elements in 8 chunks, got %d", got)
	}
	if got := len(Chunks(2*cfg.MinChunkSize, cfg)); got != 2 {
		t.Errorf("Expected two chunks at twice the minimum, got %d", got)
	}
}

func TestReduce(t *testing.T) {
	values := make([]uint32, 100_000)
	var want uint32
	for i := range values {
		values[i] = uint32(i % 1013)
		want += values[i]
	}

	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}
	var calls int64
	got := Reduce(len(values), cfg, func(r Range) uint32 {
		atomic.AddInt64(&calls, 1)
		var s uint32
		for _, v := range values[r.Start:r.End] {
			s += v
		}
		return s
	})

	if got != want {
		t.Errorf("Expected %d, got %d", want, got)
	}
	if calls != 8 {
		t.Errorf("Expected 8 chunk calls, got %d", calls)
	}
}

func TestCombine(t *testing.T) {
	for n := 0; n <= 33; n++ {
		partials := make([]uint32, n)
		var want uint32
		for i := range partials {
			partials[i] = uint32(i*i + 1)
			want += partials[i]
		}
		if got := Combine(partials); got != want {
			t.Errorf("n=%d: expected %d, got %d", n, want, got)
		}
	}
}

func BenchmarkReduce(b *testing.B) {
	values := make([]uint32, 1<<20)
	for i := range values {
		values[i] = uint32(i)
	}
	sum := func(r Range) uint32 {
		var s uint32
		for _, v := range values[r.Start:r.End] {
			s += v
		}
		return s
	}

	b.Run("parallel", func(b *testing.B) {
		cfg := DefaultConfig()
		for i := 0; i < b.N; i++ {
			_ = Reduce(len(values), cfg, sum)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := DefaultConfig()
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			_ = Reduce(len(values), cfgSeq, sum)
		}
	})
}
