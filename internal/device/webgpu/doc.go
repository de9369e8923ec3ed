// Package webgpu implements the device contract on a GPU through WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// The backend registers itself as "webgpu" on platforms where the bindings
// are available. Kernels are WGSL entry points of one shader module, compiled
// once per work-group size.
package webgpu

// BackendName is the registry name of the WebGPU backend.
const BackendName = "webgpu"
