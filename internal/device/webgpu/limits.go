package webgpu

import (
	"fmt"
	"math/bits"

	"github.com/born-ml/sumbench/internal/device"
)

// maxSegments is the number of input bindings declared by sumShader.
const maxSegments = 4

// maxSegmentShift keeps maxSegments segments addressable with u32 indices.
const maxSegmentShift = 28

// limits holds the WebGPU device limits the backend depends on.
type limits struct {
	maxBufferSize               uint64
	maxStorageBufferBindingSize uint64
	maxInvocationsPerWorkgroup  uint32
	maxWorkgroupSizeX           uint32
	maxWorkgroupsPerDimension   uint32
}

// defaultLimits are the limits a device gets when none are requested.
var defaultLimits = limits{
	maxBufferSize:               256 << 20,
	maxStorageBufferBindingSize: 128 << 20,
	maxInvocationsPerWorkgroup:  256,
	maxWorkgroupSizeX:           256,
	maxWorkgroupsPerDimension:   65535,
}

// clamp lowers l to what the adapter supports. Zero adapter fields are ignored.
func (l limits) clamp(adapter limits) limits {
	lower64 := func(a, b uint64) uint64 {
		if b == 0 {
			return a
		}
		return min(a, b)
	}
	lower32 := func(a, b uint32) uint32 {
		if b == 0 {
			return a
		}
		return min(a, b)
	}
	return limits{
		maxBufferSize:               lower64(l.maxBufferSize, adapter.maxBufferSize),
		maxStorageBufferBindingSize: lower64(l.maxStorageBufferBindingSize, adapter.maxStorageBufferBindingSize),
		maxInvocationsPerWorkgroup:  lower32(l.maxInvocationsPerWorkgroup, adapter.maxInvocationsPerWorkgroup),
		maxWorkgroupSizeX:           lower32(l.maxWorkgroupSizeX, adapter.maxWorkgroupSizeX),
		maxWorkgroupsPerDimension:   lower32(l.maxWorkgroupsPerDimension, adapter.maxWorkgroupsPerDimension),
	}
}

// segmentShift returns log2 of the elements held by one input segment: the
// largest power of two that fits both one buffer and one storage binding.
func (l limits) segmentShift() int {
	elems := min(l.maxBufferSize, l.maxStorageBufferBindingSize) / 4
	if elems == 0 {
		return 0
	}
	return min(bits.Len64(elems)-1, maxSegmentShift)
}

// segmentLen returns the elements held by one input segment.
func (l limits) segmentLen() int {
	return 1 << l.segmentShift()
}

// device converts l into the backend-neutral form.
func (l limits) device() device.Limits {
	return device.Limits{
		MaxBufferLen: maxSegments * l.segmentLen(),
		MaxGroupSize: int(min(l.maxInvocationsPerWorkgroup, l.maxWorkgroupSizeX)),
	}
}

// dispatchSize folds a linear group count into an x*y grid with at most
// maxPerDim groups per dimension. Shaders rebuild the linear group index as
// wid.y*x + wid.x and skip indices past groups.
func dispatchSize(groups int, maxPerDim uint32) (x, y uint32, err error) {
	if groups <= 0 {
		return 0, 0, nil
	}
	if maxPerDim == 0 {
		return 0, 0, fmt.Errorf("%w: no workgroups per dimension", device.ErrLimit)
	}
	//nolint:gosec // G115: groups is positive
	g := uint64(groups)
	x = uint32(min(g, uint64(maxPerDim)))
	rows := (g + uint64(x) - 1) / uint64(x)
	if rows > uint64(maxPerDim) {
		return 0, 0, fmt.Errorf("%w: %d workgroups, at most %d", device.ErrLimit, groups, uint64(maxPerDim)*uint64(maxPerDim))
	}
	return x, uint32(rows), nil
}
