//go:build windows

package webgpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/go-webgpu/webgpu/wgpu"
)

func init() {
	device.Register(BackendName, 10, func() (device.Device, error) {
		return New()
	})
}

// Device is an activated WebGPU device with its queue.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Effective limits: the request descriptor carries no limits, so the
	// device runs with the defaults, lowered to what the adapter supports.
	limits limits

	// Shader and pipeline cache, keyed by work-group size and entry point.
	shaders   map[int]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	// Pipelines compiled without caching, released with the device.
	uncached []*wgpu.ComputePipeline
	mu       sync.RWMutex

	adapterInfo *wgpu.AdapterInfoGo
}

// New requests a high performance adapter and activates a device on it.
// Returns an error if WebGPU is not available or initialization fails.
func New() (dev *Device, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", err)
	}

	// Both are informational; a device without them still runs.
	adapterInfo, _ := adapter.GetInfo()
	lim := defaultLimits
	if supported, err := adapter.GetLimits(); err == nil && supported != nil {
		lim = lim.clamp(fromSupported(supported))
	}

	wd, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", err)
	}

	queue := wd.GetQueue()
	if queue == nil {
		wd.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Device{
		instance:    instance,
		adapter:     adapter,
		device:      wd,
		queue:       queue,
		limits:      lim,
		shaders:     make(map[int]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: adapterInfo,
	}, nil
}

func fromSupported(s *wgpu.SupportedLimits) limits {
	return limits{
		maxBufferSize:               s.Limits.MaxBufferSize,
		maxStorageBufferBindingSize: s.Limits.MaxStorageBufferBindingSize,
		maxInvocationsPerWorkgroup:  s.Limits.MaxComputeInvocationsPerWorkgroup,
		maxWorkgroupSizeX:           s.Limits.MaxComputeWorkgroupSizeX,
		maxWorkgroupsPerDimension:   s.Limits.MaxComputeWorkgroupsPerDimension,
	}
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the adapter description.
func (d *Device) Name() string {
	if d.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", d.adapterInfo.Device, d.adapterInfo.Vendor)
	}
	return "WebGPU"
}

// Limits reports the largest input and work-group the device accepts. Inputs
// are split over up to maxSegments storage bindings.
func (d *Device) Limits() device.Limits {
	return d.limits.device()
}

// NewBuffer allocates n uint32 elements as one or more storage buffers of
// at most one segment each.
func (d *Device) NewBuffer(n int) (device.Buffer, error) {
	if d.device == nil {
		return nil, fmt.Errorf("webgpu: NewBuffer: %w", device.ErrReleased)
	}
	if n <= 0 {
		return nil, fmt.Errorf("webgpu: NewBuffer: invalid length %d", n)
	}
	if err := d.Limits().Check(0, n); err != nil {
		return nil, fmt.Errorf("webgpu: NewBuffer: %w", err)
	}

	b := &Buffer{dev: d, n: n, segLen: d.limits.segmentLen()}
	for lo := 0; lo < n; lo += b.segLen {
		//nolint:gosec // G115: segment length is positive
		size := uint64(min(b.segLen, n-lo)) * 4
		seg := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
			Size:  size,
		})
		if seg == nil {
			b.Release()
			return nil, fmt.Errorf("webgpu: NewBuffer: allocation of %d bytes failed", size)
		}
		b.segs = append(b.segs, seg)
	}
	return b, nil
}

// LoadKernel returns the named entry point of the reduction shader module.
func (d *Device) LoadKernel(name string) (device.Kernel, error) {
	if d.device == nil {
		return nil, fmt.Errorf("webgpu: LoadKernel: %w", device.ErrReleased)
	}
	if !entryPoints[name] {
		return nil, fmt.Errorf("webgpu: %w: %q", device.ErrUnknownKernel, name)
	}
	return &Kernel{dev: d, name: name}, nil
}

// Release releases all WebGPU resources.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pipelines {
		p.Release()
	}
	d.pipelines = nil
	for _, p := range d.uncached {
		p.Release()
	}
	d.uncached = nil

	for _, s := range d.shaders {
		s.Release()
	}
	d.shaders = nil

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// scoped runs fn inside a validation error scope and turns a captured
// validation error into a Go error.
func (d *Device) scoped(op string, fn func()) error {
	d.device.PushErrorScope(wgpu.ErrorFilterValidation)
	fn()
	errType, msg, err := d.device.PopErrorScopeAsync(d.instance)
	if err != nil {
		return fmt.Errorf("webgpu: %s: %w", op, err)
	}
	if errType != wgpu.ErrorTypeNoError {
		return fmt.Errorf("webgpu: %s: %s", op, msg)
	}
	return nil
}

// compileShader compiles the module specialized for groupSize.
// With cache set the module is stored and reused.
func (d *Device) compileShader(groupSize int, cache bool) (*wgpu.ShaderModule, error) {
	if cache {
		d.mu.RLock()
		if shader, exists := d.shaders[groupSize]; exists {
			d.mu.RUnlock()
			return shader, nil
		}
		d.mu.RUnlock()
	}

	var shader *wgpu.ShaderModule
	err := d.scoped("compile shader", func() {
		shader = d.device.CreateShaderModuleWGSL(shaderSource(groupSize, d.limits.segmentShift()))
	})
	if err == nil && shader == nil {
		err = fmt.Errorf("webgpu: compile shader: no module for group size %d", groupSize)
	}
	if err != nil {
		if shader != nil {
			shader.Release()
		}
		return nil, err
	}

	if cache {
		d.mu.Lock()
		d.shaders[groupSize] = shader
		d.mu.Unlock()
	}
	return shader, nil
}

// pipeline returns the compute pipeline of entry point name for groupSize.
// With cache set it is stored in and served from the device cache.
func (d *Device) pipeline(name string, groupSize int, cache bool) (*wgpu.ComputePipeline, error) {
	key := fmt.Sprintf("%s@%d", name, groupSize)

	if cache {
		d.mu.RLock()
		if pipeline, exists := d.pipelines[key]; exists {
			d.mu.RUnlock()
			return pipeline, nil
		}
		d.mu.RUnlock()
	}

	shader, err := d.compileShader(groupSize, cache)
	if err != nil {
		return nil, err
	}
	if !cache {
		defer shader.Release()
	}

	var pipeline *wgpu.ComputePipeline
	err = d.scoped("create pipeline "+name, func() {
		pipeline = d.device.CreateComputePipelineSimple(nil, shader, name)
	})
	if err == nil && pipeline == nil {
		err = fmt.Errorf("webgpu: create pipeline %s: no pipeline", name)
	}
	if err != nil {
		if pipeline != nil {
			pipeline.Release()
		}
		return nil, err
	}

	d.mu.Lock()
	if cache {
		d.pipelines[key] = pipeline
	} else {
		d.uncached = append(d.uncached, pipeline)
	}
	d.mu.Unlock()
	return pipeline, nil
}
