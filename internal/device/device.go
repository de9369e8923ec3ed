// Package device defines the compute device contract used by the device
// reduction strategies: buffers, named kernels and work partitions.
//
// Backends live in subpackages and register themselves with Register.
// Every submission is blocking: Kernel.Exec returns once the device has
// finished, and Buffer.ReadN observes everything the kernel wrote.
package device

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend is returned by Open for unregistered backend names.
	ErrUnknownBackend = errors.New("device: unknown backend")
	// ErrUnavailable is returned when a backend is registered but cannot run here.
	ErrUnavailable = errors.New("device: backend unavailable")
	// ErrUnknownKernel is returned by LoadKernel when the source module has no such entry point.
	ErrUnknownKernel = errors.New("device: unknown kernel")
	// ErrBufferSize is returned when a host slice does not match the buffer length.
	ErrBufferSize = errors.New("device: buffer size mismatch")
	// ErrForeignBuffer is returned when a buffer from another backend is passed to a kernel.
	ErrForeignBuffer = errors.New("device: buffer belongs to another device")
	// ErrReleased is returned when a released buffer or device is used.
	ErrReleased = errors.New("device: use after release")
	// ErrNotCompiled is returned when Exec is called before Compile, or with
	// a group size the kernel was not compiled for.
	ErrNotCompiled = errors.New("device: kernel not compiled")
	// ErrLimit is returned when a buffer or launch exceeds the device limits.
	ErrLimit = fmt.Errorf("%w: exceeds device limits", ErrUnavailable)
)

// Device is an activated execution context on one compute device.
type Device interface {
	// Name returns a human readable device description.
	Name() string
	// NewBuffer allocates a buffer of n uint32 elements.
	NewBuffer(n int) (Buffer, error)
	// LoadKernel looks up a kernel by name in the device's source module.
	LoadKernel(name string) (Kernel, error)
	// Limits returns the largest buffers and groups the device accepts.
	Limits() Limits
	// Release frees the context. Buffers must be released first.
	Release()
}

// Buffer is memory resident on a device, owned by whoever created it.
type Buffer interface {
	Len() int
	// WriteN copies len(src) elements from the host into the start of the buffer.
	WriteN(src []uint32) error
	// ReadN copies the first len(dst) elements back to the host.
	// Both transfers fail with ErrBufferSize when the host slice is longer than Len.
	ReadN(dst []uint32) error
	Release()
}

// Kernel is a named reduction routine sharing one argument contract:
// input buffer, single-element accumulator buffer, element count.
type Kernel interface {
	Name() string
	// Compile prepares the kernel for launches with groupSize work-items per
	// group. With cache set, compiled modules are shared between kernels of
	// the same device.
	Compile(groupSize int, cache bool) error
	// Exec runs the kernel over ws and blocks until it completes. ws.GroupSize
	// must be the size the kernel was compiled for.
	Exec(ws WorkSize, input, sum Buffer, n uint32) error
}

// CheckLen validates a host transfer against a buffer length.
func CheckLen(op string, bufLen, hostLen int) error {
	if hostLen > bufLen {
		return fmt.Errorf("%s: %w: buffer has %d elements, host slice %d", op, ErrBufferSize, bufLen, hostLen)
	}
	return nil
}

// Limits bounds the buffers and launches of a device. Zero fields are unbounded.
type Limits struct {
	MaxBufferLen int // elements per buffer
	MaxGroupSize int // work-items per group
}

// Check returns an error wrapping ErrLimit when a workload of n elements
// launched in groups of groupSize does not fit.
func (l Limits) Check(groupSize, n int) error {
	if l.MaxGroupSize > 0 && groupSize > l.MaxGroupSize {
		return fmt.Errorf("%w: group size %d, at most %d", ErrLimit, groupSize, l.MaxGroupSize)
	}
	if l.MaxBufferLen > 0 && n > l.MaxBufferLen {
		return fmt.Errorf("%w: %d elements, at most %d per buffer", ErrLimit, n, l.MaxBufferLen)
	}
	return nil
}
