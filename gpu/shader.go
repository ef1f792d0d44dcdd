//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/epipolar"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/refine_sample_locations.wgsl
var refineShaderTemplate string

// refineEntryPoint is the compute entry point of the refinement shader.
const refineEntryPoint = "cs_refine"

// maxGroupSize is the WebGPU default limit on invocations per workgroup.
const maxGroupSize = 256

// RefineShaderSource returns the WGSL refinement kernel specialized for l.
func RefineShaderSource(l epipolar.Layout) (string, error) {
	if err := l.Validate(); err != nil {
		return "", fmt.Errorf("gpu_refine: %w", err)
	}
	if l.GroupSize > maxGroupSize {
		return "", fmt.Errorf("gpu_refine: %w: group size %d exceeds %d invocations",
			epipolar.ErrInvalidLayout, l.GroupSize, maxGroupSize)
	}

	r := strings.NewReplacer(
		"{{STRIDE}}", strconv.Itoa(l.Stride),
		"{{GROUP_SIZE}}", strconv.Itoa(l.GroupSize),
		"{{CRITERION}}", strconv.Itoa(int(l.Criterion)),
	)
	return r.Replace(refineShaderTemplate), nil
}

// CompileShaderToSPIRV compiles WGSL source to SPIR-V words.
func CompileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// createShaderModule creates a HAL shader module from SPIR-V code.
func createShaderModule(device hal.Device, label string, spirvCode []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
}
