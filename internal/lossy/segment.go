package lossy

import (
	"math"

	"github.com/deepteams/vp8rdo/internal/dsp"
)

const (
	midUVAlpha = 64
	minUVAlpha = 30
	maxUVAlpha = 100

	snsToDQ = 0.9 // scaling from sns strength to quantizer modulation

	minDQUV = -4
	maxDQUV = 6
)

// SegmentInfo holds everything the mode decision needs to know about one
// segment: its quantizer, matrices and rate-distortion weights.
type SegmentInfo struct {
	Y1, Y2, UV Matrix

	Alpha     int // susceptibility to quantization, -127..127
	Beta      int // filter susceptibility, 0..255
	Quant     int // quantizer index, 0..127
	FStrength int // loop filter strength, 0..63

	MaxEdge  int // largest DC delta seen in flat 16x16 blocks
	MinDisto int // distortion below which MaxEdge is not tracked

	LambdaI16  int
	LambdaI4   int
	LambdaUV   int
	LambdaMode int

	LambdaTrellisI16 int
	LambdaTrellisI4  int
	LambdaTrellisUV  int

	TLambda int // weight of the spectral distortion term
}

// SegmentHeader describes the segmentation of the frame.
type SegmentHeader struct {
	NumSegments int
	UpdateMap   bool     // whether the per-macroblock segment map is coded
	Probas      [3]uint8 // segment-id tree probabilities
	Size        int      // estimated cost of the map, in 1/256 bit
}

func clip(v, lo, hi int) int {
	return dsp.Clip(v, lo, hi)
}

// qualityToCompression maps a quality in [0, 1] to a compression factor in
// [0, 1].
func qualityToCompression(c float64) float64 {
	linear := 2*c - 1
	if c < 0.75 {
		linear = c * (2.0 / 3.0)
	}
	return math.Cbrt(linear)
}

// qualityToJPEGCompression tracks the size a JPEG encoder would produce at
// the same quality, using the frame's average susceptibility.
func qualityToJPEGCompression(c, alpha float64) float64 {
	const (
		amin   = 0.30
		amax   = 0.85
		expMin = 0.4
		expMax = 0.9
		slope  = (expMin - expMax) / (amax - amin)
	)
	var expn float64
	switch {
	case alpha > amax:
		expn = expMin
	case alpha < amin:
		expn = expMax
	default:
		expn = expMax + slope*(alpha-amin)
	}
	return math.Pow(c, expn)
}

// SetSegmentParams derives the per-segment quantizers from quality (0..100)
// and the analysis results, then sets up filtering and matrices.
func (e *Encoder) SetSegmentParams(quality float64) {
	numSegments := e.segmentHdr.NumSegments
	amp := snsToDQ * float64(e.cfg.SNSStrength) / 100 / 128
	q := quality / 100
	cBase := qualityToCompression(q)
	if e.cfg.EmulateJPEGSize {
		cBase = qualityToJPEGCompression(q, float64(e.alpha)/255)
	}
	for i := 0; i < numSegments; i++ {
		// Denser segments get quantized more.
		expn := 1 - amp*float64(e.dqm[i].Alpha)
		c := math.Pow(cBase, expn)
		e.dqm[i].Quant = clip(int(127*(1-c)), 0, 127)
	}
	e.baseQuant = e.dqm[0].Quant
	for i := numSegments; i < NumMBSegments; i++ {
		e.dqm[i].Quant = e.baseQuant
	}

	// uv alpha is typically ~30 (bad) to ~100 (fine to decimate more).
	dqUVAC := (e.uvAlpha - midUVAlpha) * (maxDQUV - minDQUV) / (maxUVAlpha - minUVAlpha)
	dqUVAC = dqUVAC * e.cfg.SNSStrength / 100
	dqUVAC = clip(dqUVAC, minDQUV, maxDQUV)
	// Chroma DC gets a small boost: flat chroma blocks show quickly.
	dqUVDC := clip(-4*e.cfg.SNSStrength/100, -15, 15)

	e.dqY1DC = 0
	e.dqY2DC = 0
	e.dqY2AC = 0
	e.dqUVDC = dqUVDC
	e.dqUVAC = dqUVAC

	e.SetupFilterStrength()
	if numSegments > 1 {
		e.SimplifySegments()
	}
	e.SetupMatrices()
}

// SetupMatrices builds the quantization matrices and lambdas of the active
// segments.
func (e *Encoder) SetupMatrices() {
	tlambdaScale := 0
	if e.cfg.Method >= 4 {
		tlambdaScale = e.cfg.SNSStrength
	}
	for i := 0; i < e.segmentHdr.NumSegments; i++ {
		m := &e.dqm[i]
		q := m.Quant

		m.Y1.Q[0] = int(kDcTable[clip(q+e.dqY1DC, 0, 127)])
		m.Y1.Q[1] = int(kAcTable[clip(q, 0, 127)])

		m.Y2.Q[0] = int(kDcTable[clip(q+e.dqY2DC, 0, 127)]) * 2
		m.Y2.Q[1] = int(kAcTable2[clip(q+e.dqY2AC, 0, 127)])

		m.UV.Q[0] = int(kDcTable[clip(q+e.dqUVDC, 0, 117)])
		m.UV.Q[1] = int(kAcTable[clip(q+e.dqUVAC, 0, 127)])

		q4 := ExpandMatrix(&m.Y1, matrixY1)
		q16 := ExpandMatrix(&m.Y2, matrixY2)
		quv := ExpandMatrix(&m.UV, matrixUV)

		m.LambdaI4 = (3 * q4 * q4) >> 7
		m.LambdaI16 = 3 * q16 * q16
		m.LambdaUV = (3 * quv * quv) >> 6
		m.LambdaMode = (q4 * q4) >> 7
		m.LambdaTrellisI4 = (7 * q4 * q4) >> 3
		m.LambdaTrellisI16 = (q16 * q16) >> 2
		m.LambdaTrellisUV = (quv * quv) << 1
		m.TLambda = (tlambdaScale * q4) >> 5

		m.MinDisto = 10 * m.Y1.Q[0]
		m.MaxEdge = 0
	}
}

// SimplifySegments merges segments that ended up with identical quantizer
// and filter strength, and remaps the macroblocks accordingly.
func (e *Encoder) SimplifySegments() {
	segMap := [NumMBSegments]int{0, 1, 2, 3}
	numSegments := e.segmentHdr.NumSegments
	numFinal := 1
	for s1 := 1; s1 < numSegments; s1++ {
		s2 := 0
		for ; s2 < numFinal; s2++ {
			if e.dqm[s1].Quant == e.dqm[s2].Quant && e.dqm[s1].FStrength == e.dqm[s2].FStrength {
				break
			}
		}
		segMap[s1] = s2
		if s2 == numFinal {
			if numFinal != s1 {
				e.dqm[numFinal] = e.dqm[s1]
			}
			numFinal++
		}
	}
	if numFinal < numSegments {
		for i := range e.mbInfo {
			e.mbInfo[i].Segment = uint8(segMap[e.mbInfo[i].Segment])
		}
		e.segmentHdr.NumSegments = numFinal
		// Replicate the trailing segment infos.
		for i := numFinal; i < numSegments; i++ {
			e.dqm[i] = e.dqm[numFinal-1]
		}
	}
}

func getProba(a, b int) uint8 {
	total := a + b
	if total == 0 {
		return 255
	}
	return uint8((255*a + total/2) / total)
}

// setSegmentProbas computes the segment-id tree probabilities from the
// final segment map.
func (e *Encoder) setSegmentProbas() {
	var p [NumMBSegments]int
	for i := range e.mbInfo {
		p[e.mbInfo[i].Segment]++
	}
	hdr := &e.segmentHdr
	if hdr.NumSegments <= 1 {
		hdr.UpdateMap = false
		hdr.Size = 0
		return
	}
	hdr.Probas[0] = getProba(p[0]+p[1], p[2]+p[3])
	hdr.Probas[1] = getProba(p[0], p[1])
	hdr.Probas[2] = getProba(p[2], p[3])
	hdr.UpdateMap = hdr.Probas[0] != 255 || hdr.Probas[1] != 255 || hdr.Probas[2] != 255
	hdr.Size = p[0]*(dsp.BitCost(0, hdr.Probas[0])+dsp.BitCost(0, hdr.Probas[1])) +
		p[1]*(dsp.BitCost(0, hdr.Probas[0])+dsp.BitCost(1, hdr.Probas[1])) +
		p[2]*(dsp.BitCost(1, hdr.Probas[0])+dsp.BitCost(0, hdr.Probas[2])) +
		p[3]*(dsp.BitCost(1, hdr.Probas[0])+dsp.BitCost(1, hdr.Probas[2]))
	if !hdr.UpdateMap {
		hdr.Size = 0
	}
}
