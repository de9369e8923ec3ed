// Package workload builds the reproducible input of a benchmark run and its
// trusted reference sum.
package workload

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrEmptyWorkload is returned for non-positive element counts.
	ErrEmptyWorkload = errors.New("workload: element count must be positive")
	// ErrOverflow is returned when explicit values do not fit a 32-bit sum.
	ErrOverflow = errors.New("workload: sum overflows uint32")
)

// pcgStream is the second PCG word; the seed selects the first.
const pcgStream = 0x9e3779b97f4a7c15

// Workload is an immutable sequence of uint32 values and their exact sum.
type Workload struct {
	values       []uint32
	referenceSum uint32
	seed         uint64
}

// Bound returns the largest value Generate draws for n elements, chosen so
// that n values can never overflow a uint32 accumulator.
func Bound(n int) uint32 {
	if n <= 0 || uint64(n) > math.MaxUint32 {
		return 0
	}
	//nolint:gosec // G115: range checked above
	return math.MaxUint32 / uint32(n)
}

// Generate draws n values uniformly from [0, Bound(n)] with a PCG source
// seeded by seed. The same (n, seed) always yields the same workload.
func Generate(n int, seed uint64) (*Workload, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEmptyWorkload, n)
	}
	if uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("workload: %d elements exceed the uint32 index range", n)
	}

	r := rand.New(rand.NewPCG(seed, pcgStream))
	bound := Bound(n)

	values := make([]uint32, n)
	var sum uint32
	for i := range values {
		// Uint64N is exclusive; bound itself is a valid draw.
		values[i] = uint32(r.Uint64N(uint64(bound) + 1))
		sum += values[i]
	}

	return &Workload{values: values, referenceSum: sum, seed: seed}, nil
}

// FromValues wraps explicit values. The slice is copied.
func FromValues(values []uint32) (*Workload, error) {
	if len(values) == 0 {
		return nil, ErrEmptyWorkload
	}

	var sum uint64
	for _, v := range values {
		sum += uint64(v)
		if sum > math.MaxUint32 {
			return nil, ErrOverflow
		}
	}

	return &Workload{
		values:       append([]uint32(nil), values...),
		referenceSum: uint32(sum),
	}, nil
}

// Len returns the number of elements.
func (w *Workload) Len() int {
	return len(w.values)
}

// Values returns the elements. Callers must not modify the slice.
func (w *Workload) Values() []uint32 {
	return w.values
}

// ReferenceSum returns the sum computed once, left to right, at construction.
func (w *Workload) ReferenceSum() uint32 {
	return w.referenceSum
}

// Seed returns the generator seed, zero for explicit workloads.
func (w *Workload) Seed() uint64 {
	return w.seed
}
