package emu

import (
	"sync/atomic"

	"github.com/born-ml/sumbench/internal/device"
	"github.com/grailbio/base/traverse"
)

// Item identifies one work-item inside a dispatch.
type Item struct {
	GlobalID   int
	LocalID    int
	GroupID    int
	GlobalSize int
	GroupSize  int
}

// Group is the execution state of one work-group.
type Group struct {
	ID int
	// Local is the group's scratch memory, one slot per work-item.
	Local []uint32

	ws      device.WorkSize
	input   []uint32
	sum     *uint32
	n       int
	atomics int64
	regions int // ForEach calls since reset
}

// Program is a kernel body executed once per work-group.
type Program func(g *Group)

func newGroup(ws device.WorkSize, input []uint32, sum *uint32, n int) *Group {
	return &Group{
		Local: make([]uint32, ws.GroupSize),
		ws:    ws,
		input: input,
		sum:   sum,
		n:     n,
	}
}

func (g *Group) reset(id int) {
	g.ID = id
	g.regions = 0
	clear(g.Local)
}

// ForEach runs fn for every work-item of the group. Consecutive calls are
// separated by a group barrier.
func (g *Group) ForEach(fn func(it Item)) {
	g.regions++
	base := g.ID * g.ws.GroupSize
	for lid := 0; lid < g.ws.GroupSize; lid++ {
		fn(Item{
			GlobalID:   base + lid,
			LocalID:    lid,
			GroupID:    g.ID,
			GlobalSize: g.ws.GlobalSize,
			GroupSize:  g.ws.GroupSize,
		})
	}
}

// N returns the element count argument.
func (g *Group) N() int {
	return g.n
}

// Load reads input element i, or zero when i lies past the element count.
func (g *Group) Load(i int) uint32 {
	if i >= g.n {
		return 0
	}
	return g.input[i]
}

// AtomicAdd adds v to the global accumulator.
func (g *Group) AtomicAdd(v uint32) {
	atomic.AddUint32(g.sum, v)
	g.atomics++
}

// launch runs prog over every group of ws and blocks until all are done.
// It returns the number of atomic operations issued on the accumulator.
func (d *Device) launch(prog Program, ws device.WorkSize, input []uint32, sum *uint32, n int) (int64, error) {
	groups := ws.NumGroups()
	workers := min(d.workers, groups)
	if workers == 0 {
		return 0, nil
	}

	// Each worker takes a contiguous range of groups to keep its reads local.
	perWorker := (groups + workers - 1) / workers
	counts := make([]int64, workers)

	err := traverse.Limit(workers).Each(workers, func(w int) error {
		g := newGroup(ws, input, sum, n)
		end := min((w+1)*perWorker, groups)
		for id := w * perWorker; id < end; id++ {
			g.reset(id)
			prog(g)
		}
		counts[w] = g.atomics
		return nil
	})

	var total int64
	for _, c := range counts {
		total += c
	}
	return total, err
}
