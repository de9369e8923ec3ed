package reduce

import (
	"fmt"
	"strings"

	"github.com/born-ml/sumbench/internal/device"
)

// Variant selects the work-item/data mapping of a device reduction. All
// variants share one kernel argument contract.
type Variant int

const (
	// GlobalAtomicAdd: every item adds its element straight into the global accumulator.
	GlobalAtomicAdd Variant = iota
	// Cycle: item i sums i, i+stride, ... with stride = global item count, then one atomic.
	Cycle
	// CycleCoalesced: like Cycle, but neighbouring items of a group read neighbouring addresses on each step.
	CycleCoalesced
	// LocalMemMainThread: group-local staging, item 0 sums serially, one atomic per group.
	LocalMemMainThread
	// Tree: group-local pairwise halving, one atomic per group.
	Tree
)

// Variants lists every device variant in benchmark order.
var Variants = []Variant{GlobalAtomicAdd, Cycle, CycleCoalesced, LocalMemMainThread, Tree}

var variantNames = [...]string{
	GlobalAtomicAdd:    "global_atomic_add",
	Cycle:              "cycle",
	CycleCoalesced:     "cycle_coalesced",
	LocalMemMainThread: "local_mem_main_thread",
	Tree:               "tree",
}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return variantNames[v]
}

// KernelName returns the entry point implementing the variant.
func (v Variant) KernelName() string {
	return "sum_" + v.String()
}

// ParseVariant accepts a variant name with or without the "sum_" prefix.
func ParseVariant(s string) (Variant, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "sum_")
	for _, v := range Variants {
		if v.String() == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("reduce: unknown device variant %q", s)
}

// WorkSize returns the launch for n elements. One-element-per-item variants
// cover n items; the striding variants launch one item per
// device.ValuesPerWorkItem elements. Both round up to whole groups.
func (v Variant) WorkSize(groupSize, n int) device.WorkSize {
	switch v {
	case Cycle, CycleCoalesced:
		return device.NewWorkSize(groupSize, (n+device.ValuesPerWorkItem-1)/device.ValuesPerWorkItem)
	default:
		return device.NewWorkSize(groupSize, n)
	}
}

// Validate reports group sizes the variant cannot run with.
func (v Variant) Validate(groupSize int) error {
	if groupSize <= 0 {
		return fmt.Errorf("reduce: %s: group size must be positive, got %d", v, groupSize)
	}
	if v == Tree && !device.IsPowerOfTwo(groupSize) {
		return fmt.Errorf("reduce: %s: group size must be a power of two, got %d", v, groupSize)
	}
	return nil
}
