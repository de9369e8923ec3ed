//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Kernel is one entry point of the reduction shader module.
type Kernel struct {
	dev       *Device
	name      string
	groupSize int
	pipeline  *wgpu.ComputePipeline
}

// Name returns the entry point name.
func (k *Kernel) Name() string {
	return k.name
}

// Compile builds the pipeline for groupSize, so shader and pipeline errors
// surface before the first dispatch. Exec runs this pipeline.
func (k *Kernel) Compile(groupSize int, cache bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu: compile %s: %v", k.name, r)
		}
	}()

	if k.dev.device == nil {
		return fmt.Errorf("webgpu: compile %s: %w", k.name, device.ErrReleased)
	}
	if groupSize <= 0 {
		return fmt.Errorf("webgpu: compile %s: invalid group size %d", k.name, groupSize)
	}
	if err := k.dev.Limits().Check(groupSize, 0); err != nil {
		return fmt.Errorf("webgpu: compile %s: %w", k.name, err)
	}

	pipeline, err := k.dev.pipeline(k.name, groupSize, cache)
	if err != nil {
		return err
	}
	k.groupSize, k.pipeline = groupSize, pipeline
	return nil
}

// Exec dispatches ws.NumGroups() work-groups and waits for completion.
// Group counts above the per-dimension limit are folded into a 2D grid.
func (k *Kernel) Exec(ws device.WorkSize, input, sum device.Buffer, n uint32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu: %s: %v", k.name, r)
		}
	}()

	if k.pipeline == nil {
		return fmt.Errorf("webgpu: %s: %w", k.name, device.ErrNotCompiled)
	}
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("webgpu: %s: %w", k.name, err)
	}
	if ws.GroupSize != k.groupSize {
		return fmt.Errorf("webgpu: %s: %w for group size %d, launch uses %d",
			k.name, device.ErrNotCompiled, k.groupSize, ws.GroupSize)
	}
	in, err := k.own(input)
	if err != nil {
		return err
	}
	acc, err := k.own(sum)
	if err != nil {
		return err
	}
	if int(n) > in.n {
		return fmt.Errorf("webgpu: %s: %w: n=%d, input has %d elements", k.name, device.ErrBufferSize, n, in.n)
	}

	d := k.dev
	groups := ws.NumGroups()
	x, y, err := dispatchSize(groups, d.limits.maxWorkgroupsPerDimension)
	if err != nil {
		return fmt.Errorf("webgpu: %s: %w", k.name, err)
	}

	params := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(params[0:4], n)
	//nolint:gosec // G115: dispatchSize bounds groups to maxPerDim squared
	binary.LittleEndian.PutUint32(params[4:8], uint32(groups))
	bufferParams := d.createUniformBuffer(params)
	defer bufferParams.Release()

	entries := []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(bindingTotal, acc.segs[0], 0, 4),
		wgpu.BufferBindingEntry(bindingParams, bufferParams, 0, paramsSize),
	}
	// Unused slots alias the last segment; the shader never indexes them.
	for i := range maxSegments {
		s := min(i, len(in.segs)-1)
		//nolint:gosec // G115: i is below maxSegments
		entries = append(entries, wgpu.BufferBindingEntry(uint32(bindingValues+i), in.segs[s], 0, in.bytes(s)))
	}

	var bindGroup *wgpu.BindGroup
	err = d.scoped("dispatch "+k.name, func() {
		bindGroup = d.device.CreateBindGroupSimple(k.pipeline.GetBindGroupLayout(0), entries)
		encoder := d.device.CreateCommandEncoder(nil)
		computePass := encoder.BeginComputePass(nil)
		computePass.SetPipeline(k.pipeline)
		computePass.SetBindGroup(0, bindGroup, nil)
		computePass.DispatchWorkgroups(x, y, 1)
		computePass.End()
		d.queue.Submit(encoder.Finish(nil))
	})
	if bindGroup != nil {
		defer bindGroup.Release()
	}
	if err != nil {
		return err
	}

	// Block until the dispatch has retired: reading one element back through
	// a mapped staging buffer drains the queue.
	var done [1]uint32
	return d.readBuffer(acc.segs[0], 4, done[:])
}

func (k *Kernel) own(b device.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf.dev != k.dev {
		return nil, fmt.Errorf("webgpu: %s: %w", k.name, device.ErrForeignBuffer)
	}
	if buf.segs == nil {
		return nil, fmt.Errorf("webgpu: %s: %w", k.name, device.ErrReleased)
	}
	return buf, nil
}

// createUniformBuffer creates a uniform buffer with proper alignment.
func (d *Device) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15 // Round up to 16-byte boundary

	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), alignedSize), data)
	buffer.Unmap()

	return buffer
}
