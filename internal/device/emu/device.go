// Package emu implements the device contract on host cores.
//
// Work-groups are distributed over a bounded set of goroutines, the way a
// CPU OpenCL runtime does it: each worker owns a range of groups and runs the
// work-items of a group one after another. A kernel is a Go program over a
// Group; every Group.ForEach call is one barrier-delimited region, so local
// memory written in one region is visible to all items in the next. Global
// accumulator updates use sync/atomic, since groups run concurrently.
package emu

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/born-ml/sumbench/internal/device"
	"golang.org/x/sys/cpu"
)

// BackendName is the registry name of the emulator.
const BackendName = "emu"

// MaxGroupSize is the largest work-group the emulator runs, the usual cap
// of CPU OpenCL runtimes.
const MaxGroupSize = 1024

func init() {
	device.Register(BackendName, 0, func() (device.Device, error) {
		return New(runtime.NumCPU())
	})
}

// Device is the emulated compute device.
type Device struct {
	workers  int
	released atomic.Bool

	// Compiled program cache, shared by kernels compiled with cache=true.
	programs map[string]Program
	mu       sync.RWMutex
}

// New creates an emulated device that runs work-groups on up to workers goroutines.
func New(workers int) (*Device, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("emu: workers must be positive, got %d", workers)
	}
	return &Device{
		workers:  workers,
		programs: make(map[string]Program),
	}, nil
}

// Name returns the device description including host SIMD features.
func (d *Device) Name() string {
	return fmt.Sprintf("CPU emulator (%d workers, %s/%s, %s)", d.workers, runtime.GOOS, runtime.GOARCH, hostFeatures())
}

// NewBuffer allocates n zeroed elements.
func (d *Device) NewBuffer(n int) (device.Buffer, error) {
	if d.released.Load() {
		return nil, fmt.Errorf("emu: NewBuffer: %w", device.ErrReleased)
	}
	if n <= 0 {
		return nil, fmt.Errorf("emu: NewBuffer: invalid length %d", n)
	}
	return &Buffer{dev: d, data: make([]uint32, n)}, nil
}

// Limits reports the group size cap. Buffers are bounded by host memory only.
func (d *Device) Limits() device.Limits {
	return device.Limits{MaxGroupSize: MaxGroupSize}
}

// LoadKernel returns the named kernel from the built-in source module.
func (d *Device) LoadKernel(name string) (device.Kernel, error) {
	if d.released.Load() {
		return nil, fmt.Errorf("emu: LoadKernel: %w", device.ErrReleased)
	}
	if _, ok := sourceModule[name]; !ok {
		return nil, fmt.Errorf("emu: %w: %q", device.ErrUnknownKernel, name)
	}
	return &Kernel{dev: d, name: name}, nil
}

// Release marks the device unusable.
func (d *Device) Release() {
	d.released.Store(true)

	d.mu.Lock()
	d.programs = nil
	d.mu.Unlock()
}

// compile resolves a program, consulting the device cache when asked to.
func (d *Device) compile(name string, cache bool) (Program, error) {
	if cache {
		d.mu.RLock()
		prog, ok := d.programs[name]
		d.mu.RUnlock()
		if ok {
			return prog, nil
		}
	}

	prog, ok := sourceModule[name]
	if !ok {
		return nil, fmt.Errorf("emu: %w: %q", device.ErrUnknownKernel, name)
	}

	if cache {
		d.mu.Lock()
		if d.programs != nil {
			d.programs[name] = prog
		}
		d.mu.Unlock()
	}
	return prog, nil
}

// hostFeatures lists the SIMD extensions of the host CPU.
func hostFeatures() string {
	var feats []string
	switch runtime.GOARCH {
	case "amd64", "386":
		for _, f := range []struct {
			name string
			ok   bool
		}{
			{"sse4.2", cpu.X86.HasSSE42},
			{"avx", cpu.X86.HasAVX},
			{"avx2", cpu.X86.HasAVX2},
			{"avx512f", cpu.X86.HasAVX512F},
		} {
			if f.ok {
				feats = append(feats, f.name)
			}
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			feats = append(feats, "asimd")
		}
		if cpu.ARM64.HasSVE {
			feats = append(feats, "sve")
		}
	}
	if len(feats) == 0 {
		return "scalar"
	}
	return strings.Join(feats, " ")
}
