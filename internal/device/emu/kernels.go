package emu

import (
	"slices"

	"github.com/born-ml/sumbench/internal/device"
)

// sourceModule holds the reduction kernels by entry point name. The index
// mappings match the WGSL module of the webgpu backend.
var sourceModule = map[string]Program{
	"sum_global_atomic_add":     sumGlobalAtomicAdd,
	"sum_cycle":                 sumCycle,
	"sum_cycle_coalesced":       sumCycleCoalesced,
	"sum_local_mem_main_thread": sumLocalMemMainThread,
	"sum_tree":                  sumTree,
}

// kernelNames returns the entry points of the source module, sorted.
func kernelNames() []string {
	names := make([]string, 0, len(sourceModule))
	for name := range sourceModule {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// sumGlobalAtomicAdd: one element per item, one atomic per element.
func sumGlobalAtomicAdd(g *Group) {
	g.ForEach(func(it Item) {
		if it.GlobalID < g.N() {
			g.AtomicAdd(g.Load(it.GlobalID))
		}
	})
}

// sumCycle: item i sums i, i+globalSize, i+2*globalSize, ...
func sumCycle(g *Group) {
	g.ForEach(func(it Item) {
		var sum uint32
		for i := it.GlobalID; i < g.N(); i += it.GlobalSize {
			sum += g.Load(i)
		}
		g.AtomicAdd(sum)
	})
}

// sumCycleCoalesced: on step k the items of a group read
// base+k*groupSize+0 .. base+k*groupSize+groupSize-1, adjacent addresses.
func sumCycleCoalesced(g *Group) {
	g.ForEach(func(it Item) {
		base := it.GroupID * it.GroupSize * device.ValuesPerWorkItem
		var sum uint32
		for k := 0; k < device.ValuesPerWorkItem; k++ {
			sum += g.Load(base + k*it.GroupSize + it.LocalID)
		}
		g.AtomicAdd(sum)
	})
}

// sumLocalMemMainThread: items stage their element in local memory, item 0
// sums the group serially and publishes one atomic.
func sumLocalMemMainThread(g *Group) {
	g.ForEach(func(it Item) {
		g.Local[it.LocalID] = g.Load(it.GlobalID)
	})
	g.ForEach(func(it Item) {
		if it.LocalID != 0 {
			return
		}
		var sum uint32
		for _, v := range g.Local {
			sum += v
		}
		g.AtomicAdd(sum)
	})
}

// sumTree: pairwise halving in local memory, log2(groupSize) rounds.
// The group size must be a power of two.
func sumTree(g *Group) {
	g.ForEach(func(it Item) {
		g.Local[it.LocalID] = g.Load(it.GlobalID)
	})
	for active := len(g.Local) / 2; active > 0; active /= 2 {
		g.ForEach(func(it Item) {
			if it.LocalID < active {
				g.Local[it.LocalID] += g.Local[it.LocalID+active]
			}
		})
	}
	g.ForEach(func(it Item) {
		if it.LocalID == 0 {
			g.AtomicAdd(g.Local[0])
		}
	})
}
