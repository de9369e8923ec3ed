package device

import "fmt"

// DefaultGroupSize is the work-group size used by every device strategy.
const DefaultGroupSize = 32

// ValuesPerWorkItem is how many elements each work-item of the striding
// kernels (sum_cycle, sum_cycle_coalesced) accumulates. Kernel sources and
// host dispatch must agree on it.
const ValuesPerWorkItem = 64

// WorkSize describes a one-dimensional launch: GlobalSize work-items split
// into groups of GroupSize. GlobalSize is always a multiple of GroupSize.
type WorkSize struct {
	GroupSize  int
	GlobalSize int
}

// NewWorkSize returns a partition covering items work-items, with the
// global span rounded up to the next multiple of groupSize.
func NewWorkSize(groupSize, items int) WorkSize {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	if items < 0 {
		items = 0
	}
	return WorkSize{
		GroupSize:  groupSize,
		GlobalSize: (items + groupSize - 1) / groupSize * groupSize,
	}
}

// NumGroups returns the number of work-groups in the launch.
func (w WorkSize) NumGroups() int {
	if w.GroupSize == 0 {
		return 0
	}
	return w.GlobalSize / w.GroupSize
}

// Validate reports malformed partitions.
func (w WorkSize) Validate() error {
	switch {
	case w.GroupSize <= 0:
		return fmt.Errorf("device: group size must be positive, got %d", w.GroupSize)
	case w.GlobalSize%w.GroupSize != 0:
		return fmt.Errorf("device: global size %d is not a multiple of group size %d", w.GlobalSize, w.GroupSize)
	}
	return nil
}

func (w WorkSize) String() string {
	return fmt.Sprintf("%d/%d", w.GroupSize, w.GlobalSize)
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
