package emu

import (
	"fmt"

	"github.com/born-ml/sumbench/internal/device"
)

// Kernel is a named program of the emulator's source module.
type Kernel struct {
	dev       *Device
	name      string
	prog      Program
	groupSize int

	lastAtomics int64
}

// Name returns the entry point name.
func (k *Kernel) Name() string {
	return k.name
}

// Compile resolves the program for launches in groups of groupSize.
func (k *Kernel) Compile(groupSize int, cache bool) error {
	if groupSize <= 0 {
		return fmt.Errorf("emu: compile %s: invalid group size %d", k.name, groupSize)
	}
	if err := k.dev.Limits().Check(groupSize, 0); err != nil {
		return fmt.Errorf("emu: compile %s: %w", k.name, err)
	}
	prog, err := k.dev.compile(k.name, cache)
	if err != nil {
		return err
	}
	k.prog = prog
	k.groupSize = groupSize
	return nil
}

// Exec runs the kernel and returns when every work-group has finished.
func (k *Kernel) Exec(ws device.WorkSize, input, sum device.Buffer, n uint32) error {
	if k.prog == nil {
		return fmt.Errorf("emu: %s: %w", k.name, device.ErrNotCompiled)
	}
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("emu: %s: %w", k.name, err)
	}
	if ws.GroupSize != k.groupSize {
		return fmt.Errorf("emu: %s: %w for group size %d, launch uses %d", k.name, device.ErrNotCompiled, k.groupSize, ws.GroupSize)
	}
	in, err := k.own(input)
	if err != nil {
		return err
	}
	acc, err := k.own(sum)
	if err != nil {
		return err
	}
	if int(n) > len(in.data) {
		return fmt.Errorf("emu: %s: %w: n=%d, input has %d elements", k.name, device.ErrBufferSize, n, len(in.data))
	}

	atomics, err := k.dev.launch(k.prog, ws, in.data, &acc.data[0], int(n))
	if err != nil {
		return fmt.Errorf("emu: %s: %w", k.name, err)
	}
	k.lastAtomics = atomics
	return nil
}

// atomicOps returns how many atomic adds the last Exec issued on the accumulator.
func (k *Kernel) atomicOps() int64 {
	return k.lastAtomics
}

func (k *Kernel) own(b device.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf.dev != k.dev {
		return nil, fmt.Errorf("emu: %s: %w", k.name, device.ErrForeignBuffer)
	}
	if buf.released {
		return nil, fmt.Errorf("emu: %s: %w", k.name, device.ErrReleased)
	}
	return buf, nil
}
