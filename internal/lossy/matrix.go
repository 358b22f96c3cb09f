package lossy

// Fixed-point precision of the quantizer reciprocals.
const qfix = 17

// sharpenBits is the precision of kFreqSharpening.
const sharpenBits = 11

func bias(b uint32) int {
	return int(b) << (qfix - 8)
}

// quantDiv returns (n*iq + b) >> qfix.
func quantDiv(n, iq, b int) int {
	return (n*iq + b) >> qfix
}

// Coefficient classes of a Matrix, selecting the bias row and whether
// sharpening applies.
const (
	matrixY1 = 0
	matrixY2 = 1
	matrixUV = 2
)

// Matrix holds the quantization parameters of one coefficient class, in
// raster order. Entries 2..15 always equal entry 1.
type Matrix struct {
	Q       [16]int // quantizer steps
	IQ      [16]int // (1 << qfix) / Q
	Bias    [16]int // rounding bias
	ZThresh [16]int // magnitudes at or below this quantize to zero
	Sharpen [16]int // frequency boost, luma AC only
}

// ExpandMatrix fills the derived fields of m from Q[0] and Q[1] and returns
// the average step, used for the lambdas.
func ExpandMatrix(m *Matrix, class int) int {
	for i := 0; i < 2; i++ {
		isAC := 0
		if i > 0 {
			isAC = 1
		}
		b := kBiasMatrices[class][isAC]
		m.IQ[i] = (1 << qfix) / m.Q[i]
		m.Bias[i] = bias(b)
		// zthresh is the exact value such that quantDiv(coeff, iQ, B) is
		// non-zero iff coeff > zthresh.
		m.ZThresh[i] = ((1 << qfix) - 1 - m.Bias[i]) / m.IQ[i]
	}
	for i := 2; i < 16; i++ {
		m.Q[i] = m.Q[1]
		m.IQ[i] = m.IQ[1]
		m.Bias[i] = m.Bias[1]
		m.ZThresh[i] = m.ZThresh[1]
	}
	sum := 0
	for i := 0; i < 16; i++ {
		if class == matrixY1 {
			m.Sharpen[i] = (int(kFreqSharpening[i]) * m.Q[i]) >> sharpenBits
		} else {
			m.Sharpen[i] = 0
		}
		sum += m.Q[i]
	}
	return (sum + 8) >> 4
}
