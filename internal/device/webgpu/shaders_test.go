package webgpu

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShaderSource(t *testing.T) {
	src := shaderSource(64, 25)

	assert.NotContains(t, src, "{{")
	assert.Contains(t, src, "const GROUP_SIZE: u32 = 64u;")
	assert.Contains(t, src, "const VALUES_PER_WORK_ITEM: u32 = 64u;")
	assert.Contains(t, src, "const SEGMENT_SHIFT: u32 = 25u;")

	for name := range entryPoints {
		assert.Contains(t, src, "fn "+name+"(", name)
	}
	assert.Equal(t, len(entryPoints), strings.Count(src, "@compute"))
}

func TestShaderSource_Bindings(t *testing.T) {
	src := shaderSource(32, 25)

	assert.Equal(t, bindingValues+maxSegments, strings.Count(src, "@binding("))
	assert.Contains(t, src, "@binding(0) var<storage, read_write> total")
	assert.Contains(t, src, "@binding(1) var<uniform> params")
	for i, name := range []string{"values0", "values1", "values2", "values3"} {
		assert.Contains(t, src, fmt.Sprintf("@binding(%d) var<storage, read> %s", bindingValues+i, name))
	}
}

func TestShaderSource_Guards(t *testing.T) {
	src := shaderSource(32, 25)

	// Reads past n yield zero, and folded grids skip groups past the count.
	assert.Contains(t, src, "if (i >= params.n)")
	assert.Equal(t, len(entryPoints), strings.Count(src, "if (group >= params.groups)"))
	assert.Contains(t, src, "let stride = params.groups * GROUP_SIZE;")
}
