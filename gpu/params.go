//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/epipolar"
)

// refineParamsSize is the size of RefineParams in the shader.
const refineParamsSize = 48

// GPURefineParams is the uniform block of the refinement shader.
// Must match RefineParams in refine_sample_locations.wgsl.
type GPURefineParams struct {
	TextureWidth          uint32
	TextureHeight         uint32
	DensityFactor         uint32
	Padding0              uint32
	LightScreenPos        [2]float32 // 8-byte aligned at offset 16
	RefinementThreshold   float32
	MiddleGray            float32
	AverageLuminance      float32
	EpipoleBudgetFraction float32
	EpipoleRadius         float32
	Padding1              float32
}

// newRefineParams builds the uniform block for one dispatch.
func newRefineParams(in *epipolar.Inputs) GPURefineParams {
	a := in.Attribs
	//nolint:gosec // texture dimensions are validated positive
	return GPURefineParams{
		TextureWidth:          uint32(in.Coordinates.Width),
		TextureHeight:         uint32(in.Coordinates.Height),
		DensityFactor:         a.EpipoleSamplingDensityFactor,
		LightScreenPos:        a.LightScreenPos,
		RefinementThreshold:   a.RefinementThreshold,
		MiddleGray:            a.MiddleGray,
		AverageLuminance:      in.AverageLuminance,
		EpipoleBudgetFraction: a.EpipoleBudgetFraction,
		EpipoleRadius:         a.EpipoleRadius,
	}
}

func (p GPURefineParams) toBytes() []byte {
	buf := make([]byte, refineParamsSize)
	writeUint32(buf, 0, p.TextureWidth)
	writeUint32(buf, 4, p.TextureHeight)
	writeUint32(buf, 8, p.DensityFactor)
	writeUint32(buf, 12, p.Padding0)
	writeFloat32(buf, 16, p.LightScreenPos[0])
	writeFloat32(buf, 20, p.LightScreenPos[1])
	writeFloat32(buf, 24, p.RefinementThreshold)
	writeFloat32(buf, 28, p.MiddleGray)
	writeFloat32(buf, 32, p.AverageLuminance)
	writeFloat32(buf, 36, p.EpipoleBudgetFraction)
	writeFloat32(buf, 40, p.EpipoleRadius)
	writeFloat32(buf, 44, p.Padding1)
	return buf
}

func writeUint32(buf []byte, offset int, val uint32) {
	binary.LittleEndian.PutUint32(buf[offset:], val)
}

func writeFloat32(buf []byte, offset int, val float32) {
	writeUint32(buf, offset, math.Float32bits(val))
}

func float32sToBytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		writeFloat32(buf, 4*i, f)
	}
	return buf
}

func bytesToUint32s(buf []byte, dst []uint32) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
}

func uint32sToBytes(v []uint32) []byte {
	buf := make([]byte, 4*len(v))
	for i, u := range v {
		writeUint32(buf, 4*i, u)
	}
	return buf
}
