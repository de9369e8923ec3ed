package webgpu

import (
	"strconv"
	"strings"

	"github.com/born-ml/sumbench/internal/device"
)

// sumShader holds every reduction entry point. All of them share the same
// bindings: total (atomic accumulator), params (n and the linear group
// count) and the input split into four segments of 1<<SEGMENT_SHIFT
// elements, so inputs larger than one storage binding stay addressable.
// Dispatches may be folded into two dimensions; group_index rebuilds the
// linear index and groups past params.groups return at once.
//
// GROUP_SIZE, VALUES_PER_WORK_ITEM and SEGMENT_SHIFT are substituted before
// compilation.
const sumShader = `
const GROUP_SIZE: u32 = {{GROUP_SIZE}}u;
const VALUES_PER_WORK_ITEM: u32 = {{VALUES_PER_WORK_ITEM}}u;
const SEGMENT_SHIFT: u32 = {{SEGMENT_SHIFT}}u;
const SEGMENT_MASK: u32 = (1u << SEGMENT_SHIFT) - 1u;

struct Params {
    n: u32,
    groups: u32,
}

@group(0) @binding(0) var<storage, read_write> total: atomic<u32>;
@group(0) @binding(1) var<uniform> params: Params;
@group(0) @binding(2) var<storage, read> values0: array<u32>;
@group(0) @binding(3) var<storage, read> values1: array<u32>;
@group(0) @binding(4) var<storage, read> values2: array<u32>;
@group(0) @binding(5) var<storage, read> values3: array<u32>;

var<workgroup> local_data: array<u32, GROUP_SIZE>;

fn load(i: u32) -> u32 {
    if (i >= params.n) {
        return 0u;
    }
    let j = i & SEGMENT_MASK;
    switch (i >> SEGMENT_SHIFT) {
        case 0u: { return values0[j]; }
        case 1u: { return values1[j]; }
        case 2u: { return values2[j]; }
        default: { return values3[j]; }
    }
}

fn group_index(wid: vec3<u32>, grid: vec3<u32>) -> u32 {
    return wid.y * grid.x + wid.x;
}

@compute @workgroup_size(GROUP_SIZE)
fn sum_global_atomic_add(
    @builtin(workgroup_id) wid: vec3<u32>,
    @builtin(num_workgroups) grid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>
) {
    let group = group_index(wid, grid);
    if (group >= params.groups) {
        return;
    }
    let gid = group * GROUP_SIZE + lid.x;
    if (gid < params.n) {
        atomicAdd(&total, load(gid));
    }
}

@compute @workgroup_size(GROUP_SIZE)
fn sum_cycle(
    @builtin(workgroup_id) wid: vec3<u32>,
    @builtin(num_workgroups) grid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>
) {
    let group = group_index(wid, grid);
    if (group >= params.groups) {
        return;
    }
    let stride = params.groups * GROUP_SIZE;
    var acc: u32 = 0u;
    for (var i: u32 = group * GROUP_SIZE + lid.x; i < params.n; i = i + stride) {
        acc = acc + load(i);
    }
    atomicAdd(&total, acc);
}

@compute @workgroup_size(GROUP_SIZE)
fn sum_cycle_coalesced(
    @builtin(workgroup_id) wid: vec3<u32>,
    @builtin(num_workgroups) grid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>
) {
    let group = group_index(wid, grid);
    if (group >= params.groups) {
        return;
    }
    let base = group * GROUP_SIZE * VALUES_PER_WORK_ITEM + lid.x;
    var acc: u32 = 0u;
    for (var k: u32 = 0u; k < VALUES_PER_WORK_ITEM; k = k + 1u) {
        acc = acc + load(base + k * GROUP_SIZE);
    }
    atomicAdd(&total, acc);
}

@compute @workgroup_size(GROUP_SIZE)
fn sum_local_mem_main_thread(
    @builtin(workgroup_id) wid: vec3<u32>,
    @builtin(num_workgroups) grid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>
) {
    let group = group_index(wid, grid);
    if (group >= params.groups) {
        return;
    }
    local_data[lid.x] = load(group * GROUP_SIZE + lid.x);
    workgroupBarrier();

    if (lid.x == 0u) {
        var acc: u32 = 0u;
        for (var i: u32 = 0u; i < GROUP_SIZE; i = i + 1u) {
            acc = acc + local_data[i];
        }
        atomicAdd(&total, acc);
    }
}

@compute @workgroup_size(GROUP_SIZE)
fn sum_tree(
    @builtin(workgroup_id) wid: vec3<u32>,
    @builtin(num_workgroups) grid: vec3<u32>,
    @builtin(local_invocation_id) lid: vec3<u32>
) {
    let group = group_index(wid, grid);
    if (group >= params.groups) {
        return;
    }
    local_data[lid.x] = load(group * GROUP_SIZE + lid.x);
    workgroupBarrier();

    for (var active: u32 = GROUP_SIZE / 2u; active > 0u; active = active / 2u) {
        if (lid.x < active) {
            local_data[lid.x] = local_data[lid.x] + local_data[lid.x + active];
        }
        workgroupBarrier();
    }

    if (lid.x == 0u) {
        atomicAdd(&total, local_data[0]);
    }
}
`

// entryPoints lists the kernels defined by sumShader.
var entryPoints = map[string]bool{
	"sum_global_atomic_add":     true,
	"sum_cycle":                 true,
	"sum_cycle_coalesced":       true,
	"sum_local_mem_main_thread": true,
	"sum_tree":                  true,
}

// Binding slots of sumShader.
const (
	bindingTotal  = 0
	bindingParams = 1
	bindingValues = 2 // first of maxSegments consecutive slots
)

// paramsSize is the uniform block size, padded to 16 bytes.
const paramsSize = 16

// shaderSource specializes sumShader for a work-group size and segment length.
func shaderSource(groupSize, segmentShift int) string {
	return strings.NewReplacer(
		"{{GROUP_SIZE}}", strconv.Itoa(groupSize),
		"{{VALUES_PER_WORK_ITEM}}", strconv.Itoa(device.ValuesPerWorkItem),
		"{{SEGMENT_SHIFT}}", strconv.Itoa(segmentShift),
	).Replace(sumShader)
}
