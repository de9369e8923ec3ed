package reduce

import (
	"fmt"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/born-ml/sumbench/internal/workload"
)

// DeviceReducer runs one Variant on a device. It owns two buffers for its
// lifetime: the uploaded workload, read-only after construction, and a
// single-element accumulator zeroed by every Reset.
type DeviceReducer struct {
	variant Variant
	kernel  device.Kernel
	input   device.Buffer
	sum     device.Buffer
	ws      device.WorkSize
	n       uint32

	result [1]uint32
}

// NewDeviceReducer uploads w and compiles the variant's kernel with caching.
// Workloads or group sizes beyond the device limits fail with an error
// wrapping device.ErrLimit before anything is allocated.
func NewDeviceReducer(dev device.Device, v Variant, w *workload.Workload, groupSize int) (dr *DeviceReducer, err error) {
	if err := v.Validate(groupSize); err != nil {
		return nil, err
	}
	if err := dev.Limits().Check(groupSize, w.Len()); err != nil {
		return nil, fmt.Errorf("reduce: %s: %w", v, err)
	}

	dr = &DeviceReducer{
		variant: v,
		ws:      v.WorkSize(groupSize, w.Len()),
		//nolint:gosec // G115: workload length fits uint32
		n: uint32(w.Len()),
	}
	defer func() {
		if err != nil {
			dr.Close()
			dr = nil
		}
	}()

	if dr.input, err = dev.NewBuffer(w.Len()); err != nil {
		return nil, fmt.Errorf("reduce: %s: input buffer: %w", v, err)
	}
	if err = dr.input.WriteN(w.Values()); err != nil {
		return nil, fmt.Errorf("reduce: %s: upload: %w", v, err)
	}
	if dr.sum, err = dev.NewBuffer(1); err != nil {
		return nil, fmt.Errorf("reduce: %s: accumulator buffer: %w", v, err)
	}
	if dr.kernel, err = dev.LoadKernel(v.KernelName()); err != nil {
		return nil, fmt.Errorf("reduce: %s: %w", v, err)
	}
	if err = dr.kernel.Compile(groupSize, true); err != nil {
		return nil, fmt.Errorf("reduce: %s: compile: %w", v, err)
	}
	return dr, nil
}

// Name implements bench.Reducer.
func (d *DeviceReducer) Name() string {
	return "GPU " + d.variant.KernelName()
}

// Variant returns the mapping this reducer runs.
func (d *DeviceReducer) Variant() Variant {
	return d.variant
}

// WorkSize returns the launch used by every trial.
func (d *DeviceReducer) WorkSize() device.WorkSize {
	return d.ws
}

// Reset writes zero into the accumulator.
func (d *DeviceReducer) Reset() error {
	d.result[0] = 0
	return d.sum.WriteN(d.result[:])
}

// Reduce executes the kernel and reads the accumulator back.
func (d *DeviceReducer) Reduce() (uint32, error) {
	if err := d.kernel.Exec(d.ws, d.input, d.sum, d.n); err != nil {
		return 0, err
	}
	if err := d.sum.ReadN(d.result[:]); err != nil {
		return 0, err
	}
	return d.result[0], nil
}

// Close releases both buffers. It is safe to call more than once.
func (d *DeviceReducer) Close() error {
	if d.input != nil {
		d.input.Release()
		d.input = nil
	}
	if d.sum != nil {
		d.sum.Release()
		d.sum = nil
	}
	return nil
}
