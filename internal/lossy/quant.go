package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// QuantizeBlock quantizes the raster-order coefficients in, starting at
// zigzag position first. It returns the levels in zigzag order, the
// dequantized coefficients in raster order, and whether any level is
// non-zero.
func QuantizeBlock(in [16]int16, first int, mtx *Matrix) (levels, dequant [16]int16, nz bool) {
	dequant = in
	nz = quantizeBlock(dequant[:], levels[:], first, mtx)
	return levels, dequant, nz
}

// quantizeBlock is the in-place form of QuantizeBlock.
func quantizeBlock(in, out []int16, first int, mtx *Matrix) bool {
	_ = in[15]
	_ = out[15]
	last := -1
	for n := 0; n < first; n++ {
		out[n] = 0
	}
	for n := first; n < 16; n++ {
		j := dsp.Zigzag[n]
		sign := in[j] < 0
		coeff := absLevel(in[j]) + mtx.Sharpen[j]
		if coeff <= mtx.ZThresh[j] {
			out[n] = 0
			in[j] = 0
			continue
		}
		level := quantDiv(coeff, mtx.IQ[j], mtx.Bias[j])
		if level > MaxLevel {
			level = MaxLevel
		}
		if sign {
			level = -level
		}
		in[j] = int16(level * mtx.Q[j])
		out[n] = int16(level)
		if level != 0 {
			last = n
		}
	}
	return last >= 0
}

// quantizeBlockWHT quantizes the Y2 block. The Y2 matrix carries no
// sharpening, so this is the plain quantizer over all sixteen positions.
func quantizeBlockWHT(in, out []int16, mtx *Matrix) bool {
	return quantizeBlock(in, out, 0, mtx)
}
