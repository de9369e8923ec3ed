//go:build windows

package webgpu

import (
	"testing"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAvailable(t *testing.T) {
	available := IsAvailable()
	t.Logf("WebGPU available: %v", available)
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := New()
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	t.Cleanup(dev.Release)
	return dev
}

func TestBufferRoundTrip(t *testing.T) {
	dev := newTestDevice(t)

	buf, err := dev.NewBuffer(5)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.WriteN([]uint32{1, 2, 3, 4, 5}))
	out := make([]uint32, 5)
	require.NoError(t, buf.ReadN(out))
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, out)

	assert.ErrorIs(t, buf.WriteN(make([]uint32, 6)), device.ErrBufferSize)
}

func TestKernels(t *testing.T) {
	dev := newTestDevice(t)
	t.Logf("Using GPU: %s", dev.Name())

	for _, n := range []int{1, 100, 1000, 100000} {
		values := make([]uint32, n)
		var want uint32
		for i := range values {
			values[i] = uint32(i % 977)
			want += values[i]
		}

		input, err := dev.NewBuffer(n)
		require.NoError(t, err)
		require.NoError(t, input.WriteN(values))
		sum, err := dev.NewBuffer(1)
		require.NoError(t, err)

		for name := range entryPoints {
			//nolint:gosec // test sizes are small
			assert.Equal(t, want, run(t, dev, name, 32, input, sum, uint32(n)), "%s n=%d", name, n)
		}

		input.Release()
		sum.Release()
	}
}

// launch returns the work size the reducers use for kernel name over n values.
func launch(name string, groupSize, n int) device.WorkSize {
	items := n
	if name == "sum_cycle" || name == "sum_cycle_coalesced" {
		items = (n + device.ValuesPerWorkItem - 1) / device.ValuesPerWorkItem
	}
	return device.NewWorkSize(groupSize, items)
}

// run compiles kernel name, sums the first n elements of input into a
// zeroed sum buffer and returns the result.
func run(t *testing.T, dev *Device, name string, groupSize int, input, sum device.Buffer, n uint32) uint32 {
	t.Helper()
	k, err := dev.LoadKernel(name)
	require.NoError(t, err)
	require.NoError(t, k.Compile(groupSize, true))

	require.NoError(t, sum.WriteN([]uint32{0}))
	require.NoError(t, k.Exec(launch(name, groupSize, int(n)), input, sum, n))

	out := []uint32{0}
	require.NoError(t, sum.ReadN(out))
	return out[0]
}

func TestKernels_PartialLastGroup(t *testing.T) {
	dev := newTestDevice(t)

	// Garbage past n must never be read.
	backing := make([]uint32, 128)
	var want uint32
	for i := range backing {
		backing[i] = uint32(i + 1)
		if i >= 100 {
			backing[i] = 0xdeadbeef
		} else {
			want += backing[i]
		}
	}

	input, err := dev.NewBuffer(len(backing))
	require.NoError(t, err)
	defer input.Release()
	require.NoError(t, input.WriteN(backing))
	sum, err := dev.NewBuffer(1)
	require.NoError(t, err)
	defer sum.Release()

	for name := range entryPoints {
		assert.Equal(t, want, run(t, dev, name, 32, input, sum, 100), name)
	}
}

func TestKernels_FoldedDispatch(t *testing.T) {
	dev := newTestDevice(t)

	// More groups than one dispatch dimension holds at group size 32.
	n := int(dev.limits.maxWorkgroupsPerDimension)*32 + 1000
	values := make([]uint32, n)
	var want uint32
	for i := range values {
		values[i] = uint32(i%251) + 1
		want += values[i]
	}

	input, err := dev.NewBuffer(n)
	require.NoError(t, err)
	defer input.Release()
	require.NoError(t, input.WriteN(values))
	sum, err := dev.NewBuffer(1)
	require.NoError(t, err)
	defer sum.Release()

	require.Greater(t, launch("sum_tree", 32, n).NumGroups(), int(dev.limits.maxWorkgroupsPerDimension))
	for name := range entryPoints {
		//nolint:gosec // n fits in uint32
		assert.Equal(t, want, run(t, dev, name, 32, input, sum, uint32(n)), name)
	}
}

func TestKernels_Segmented(t *testing.T) {
	dev := newTestDevice(t)
	// 1024 elements per segment, set before any shader is compiled.
	dev.limits.maxStorageBufferBindingSize = 4096
	require.Equal(t, 1024, dev.limits.segmentLen())
	require.Equal(t, 4096, dev.Limits().MaxBufferLen)

	n := 3*1024 + 100
	values := make([]uint32, n)
	var want uint32
	for i := range values {
		values[i] = uint32(i) + 7
		want += values[i]
	}

	input, err := dev.NewBuffer(n)
	require.NoError(t, err)
	defer input.Release()
	require.Len(t, input.(*Buffer).segs, 4)
	require.NoError(t, input.WriteN(values))

	out := make([]uint32, n)
	require.NoError(t, input.ReadN(out))
	require.Equal(t, values, out)

	sum, err := dev.NewBuffer(1)
	require.NoError(t, err)
	defer sum.Release()

	for name := range entryPoints {
		//nolint:gosec // n fits in uint32
		assert.Equal(t, want, run(t, dev, name, 64, input, sum, uint32(n)), name)
	}

	_, err = dev.NewBuffer(4097)
	assert.ErrorIs(t, err, device.ErrLimit)
}

func TestKernel_Limits(t *testing.T) {
	dev := newTestDevice(t)
	maxGroup := dev.Limits().MaxGroupSize

	k, err := dev.LoadKernel("sum_tree")
	require.NoError(t, err)
	err = k.Compile(maxGroup*2, false)
	assert.ErrorIs(t, err, device.ErrLimit)
	assert.ErrorIs(t, err, device.ErrUnavailable)

	input, err := dev.NewBuffer(64)
	require.NoError(t, err)
	defer input.Release()
	sum, err := dev.NewBuffer(1)
	require.NoError(t, err)
	defer sum.Release()

	// Launching with a size other than the compiled one is refused.
	require.NoError(t, k.Compile(64, false))
	assert.ErrorIs(t, k.Exec(device.NewWorkSize(32, 64), input, sum, 64), device.ErrNotCompiled)
}

func TestLoadKernel_Unknown(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.LoadKernel("sum_nothing")
	assert.ErrorIs(t, err, device.ErrUnknownKernel)
}
