// Package exrio reads and writes epipolar textures as OpenEXR images.
//
// Each texture maps to a single-part scanline image whose width is the
// number of samples per slice and whose height is the number of slices:
//
//	Coordinates  R, G     float   normalized device x, y
//	Depth        Z        float   camera space depth
//	Scattering   R, G, B  float   in-scattered light (half with WithHalf)
//	Sources      R, G     uint    left, right interpolation source
//
// Readers accept any pixel type for float channels; values are converted
// on load.
package exrio
