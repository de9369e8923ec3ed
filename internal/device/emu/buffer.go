package emu

import (
	"fmt"

	"github.com/born-ml/sumbench/internal/device"
)

// Buffer is host memory standing in for device memory.
type Buffer struct {
	dev      *Device
	data     []uint32
	released bool
}

// Len returns the element count.
func (b *Buffer) Len() int {
	return len(b.data)
}

// WriteN copies src into the start of the buffer.
func (b *Buffer) WriteN(src []uint32) error {
	if b.released {
		return fmt.Errorf("emu: WriteN: %w", device.ErrReleased)
	}
	if err := device.CheckLen("emu: WriteN", len(b.data), len(src)); err != nil {
		return err
	}
	copy(b.data, src)
	return nil
}

// ReadN copies the first len(dst) elements back to the host.
func (b *Buffer) ReadN(dst []uint32) error {
	if b.released {
		return fmt.Errorf("emu: ReadN: %w", device.ErrReleased)
	}
	if err := device.CheckLen("emu: ReadN", len(b.data), len(dst)); err != nil {
		return err
	}
	copy(dst, b.data)
	return nil
}

// Release drops the backing memory.
func (b *Buffer) Release() {
	b.released = true
	b.data = nil
}
