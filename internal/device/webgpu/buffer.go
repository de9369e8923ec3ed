//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Buffer is a device array of uint32 elements, stored as consecutive
// segments of segLen elements. Only the last segment may be shorter.
type Buffer struct {
	dev    *Device
	segs   []*wgpu.Buffer
	n      int
	segLen int
}

// Len returns the element count.
func (b *Buffer) Len() int {
	return b.n
}

// segment returns the element range [lo, hi) held by segment i.
func (b *Buffer) segment(i int) (lo, hi int) {
	lo = i * b.segLen
	return lo, min(lo+b.segLen, b.n)
}

// WriteN uploads src through mapped staging buffers, one per segment.
func (b *Buffer) WriteN(src []uint32) error {
	if b.segs == nil {
		return fmt.Errorf("webgpu: WriteN: %w", device.ErrReleased)
	}
	if err := device.CheckLen("webgpu: WriteN", b.n, len(src)); err != nil {
		return err
	}
	for i, seg := range b.segs {
		lo, hi := b.segment(i)
		if lo >= len(src) {
			break
		}
		b.dev.writeBuffer(seg, src[lo:min(hi, len(src))])
	}
	return nil
}

// ReadN downloads the first len(dst) elements. The queue is drained first,
// so every submitted kernel has finished writing.
func (b *Buffer) ReadN(dst []uint32) error {
	if b.segs == nil {
		return fmt.Errorf("webgpu: ReadN: %w", device.ErrReleased)
	}
	if err := device.CheckLen("webgpu: ReadN", b.n, len(dst)); err != nil {
		return err
	}
	for i, seg := range b.segs {
		lo, hi := b.segment(i)
		if lo >= len(dst) {
			break
		}
		part := dst[lo:min(hi, len(dst))]
		//nolint:gosec // G115: len is non-negative
		if err := b.dev.readBuffer(seg, uint64(len(part))*4, part); err != nil {
			return err
		}
	}
	return nil
}

// Release frees the GPU memory.
func (b *Buffer) Release() {
	for _, seg := range b.segs {
		seg.Release()
	}
	b.segs = nil
}

// bytes returns the size of segment i in bytes.
func (b *Buffer) bytes(i int) uint64 {
	lo, hi := b.segment(i)
	//nolint:gosec // G115: segment bounds are ordered
	return uint64(hi-lo) * 4
}

// writeBuffer copies src to the start of dst through a staging buffer.
func (d *Device) writeBuffer(dst *wgpu.Buffer, src []uint32) {
	if len(src) == 0 {
		return
	}
	//nolint:gosec // G115: len is non-negative
	size := uint64(len(src)) * 4
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*uint32)(mappedPtr), len(src)), src)
	staging.Unmap()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, dst, 0, size)
	d.queue.Submit(encoder.Finish(nil))
}

// readBuffer copies size bytes of src into dst through a staging buffer,
// since storage buffers can't be mapped directly.
func (d *Device) readBuffer(src *wgpu.Buffer, size uint64, dst []uint32) error {
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	// MapAsync waits for all prior submissions on the queue.
	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(dst, unsafe.Slice((*uint32)(mappedPtr), size/4))
	staging.Unmap()
	return nil
}
