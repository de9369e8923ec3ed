package reduce

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/sumbench/internal/bench"
	"github.com/born-ml/sumbench/internal/device"
	"github.com/born-ml/sumbench/internal/parallel"
	"github.com/born-ml/sumbench/internal/workload"
)

// Host strategy names accepted by Plan.
const (
	SequentialName = "sequential"
	ParallelName   = "parallel"
)

// All selects every strategy.
const All = "all"

// StrategyNames lists every strategy in benchmark order: the host
// strategies, then the device variants.
func StrategyNames() []string {
	names := []string{SequentialName, ParallelName}
	for _, v := range Variants {
		names = append(names, v.String())
	}
	return names
}

// Settings configures the strategies built by Plan.
type Settings struct {
	GroupSize int
	Parallel  parallel.Config
}

// Selection is a parsed, ordered strategy list.
type Selection struct {
	Sequential bool
	Parallel   bool
	Variants   []Variant
}

// NeedsDevice reports whether any device variant is selected.
func (s Selection) NeedsDevice() bool {
	return len(s.Variants) > 0
}

// Select parses strategy names. Empty input or "all" selects everything;
// duplicates are ignored and benchmark order is always preserved.
func Select(names []string) (Selection, error) {
	var sel Selection
	if len(names) == 0 || slices.Contains(names, All) {
		return Selection{Sequential: true, Parallel: true, Variants: slices.Clone(Variants)}, nil
	}

	picked := make(map[Variant]bool)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case SequentialName:
			sel.Sequential = true
		case ParallelName:
			sel.Parallel = true
		default:
			v, err := ParseVariant(name)
			if err != nil {
				return Selection{}, fmt.Errorf("reduce: unknown strategy %q (known: %s)", raw, strings.Join(StrategyNames(), ", "))
			}
			picked[v] = true
		}
	}
	for _, v := range Variants {
		if picked[v] {
			sel.Variants = append(sel.Variants, v)
		}
	}
	return sel, nil
}

// Plan builds the candidates of sel over w. dev may be nil when no device
// variant is selected.
func Plan(sel Selection, w *workload.Workload, dev device.Device, s Settings) ([]bench.Candidate, error) {
	if sel.NeedsDevice() && dev == nil {
		return nil, fmt.Errorf("reduce: device variants selected without a device")
	}
	for _, v := range sel.Variants {
		if err := v.Validate(s.GroupSize); err != nil {
			return nil, err
		}
	}

	var cands []bench.Candidate
	if sel.Sequential {
		cands = append(cands, bench.Candidate{
			Name: SequentialName,
			New:  func() (bench.Reducer, error) { return NewSequential(w), nil },
		})
	}
	if sel.Parallel {
		cands = append(cands, bench.Candidate{
			Name: ParallelName,
			New:  func() (bench.Reducer, error) { return NewParallel(w, s.Parallel), nil },
		})
	}
	for _, v := range sel.Variants {
		cands = append(cands, bench.Candidate{
			Name: v.String(),
			New: func() (bench.Reducer, error) {
				dr, err := NewDeviceReducer(dev, v, w, s.GroupSize)
				if err != nil {
					return nil, err
				}
				return dr, nil
			},
		})
	}
	return cands, nil
}
