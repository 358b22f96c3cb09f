package lossy

const maxDeltaSize = 64

// kLevelsFromDelta gives, per sharpness, the loop-filter strength needed to
// smooth an edge step of a given delta.
var kLevelsFromDelta = [8][maxDeltaSize]uint8{
	{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
		16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31,
		32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47,
		48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63,
	},
	{
		0, 1, 2, 3, 5, 6, 7, 8, 9, 11, 12, 13, 14, 15, 17, 18,
		20, 21, 23, 24, 26, 27, 29, 30, 32, 33, 35, 36, 38, 39, 41, 42,
		44, 45, 47, 48, 50, 51, 53, 54, 56, 57, 59, 60, 62, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
	{
		0, 1, 2, 3, 5, 6, 7, 8, 9, 11, 12, 13, 14, 16, 17, 19,
		20, 22, 23, 25, 26, 28, 29, 31, 32, 34, 35, 37, 38, 40, 41, 43,
		44, 46, 47, 49, 50, 52, 53, 55, 56, 58, 59, 61, 62, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
	{
		0, 1, 2, 3, 5, 6, 7, 8, 9, 11, 12, 13, 15, 16, 18, 19,
		21, 22, 24, 25, 27, 28, 30, 31, 33, 34, 36, 37, 39, 40, 42, 43,
		45, 46, 48, 49, 51, 52, 54, 55, 57, 58, 60, 61, 63, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
	{
		0, 1, 2, 3, 5, 6, 7, 8, 9, 11, 12, 14, 15, 17, 18, 20,
		21, 23, 24, 26, 27, 29, 30, 32, 33, 35, 36, 38, 39, 41, 42, 44,
		45, 47, 48, 50, 51, 53, 54, 56, 57, 59, 60, 62, 63, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
	{
		0, 1, 2, 4, 5, 7, 8, 9, 11, 12, 13, 15, 16, 17, 19, 20,
		22, 23, 25, 26, 28, 29, 31, 32, 34, 35, 37, 38, 40, 41, 43, 44,
		46, 47, 49, 50, 52, 53, 55, 56, 58, 59, 61, 62, 63, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
	{
		0, 1, 2, 4, 5, 7, 8, 9, 11, 12, 13, 15, 16, 18, 19, 21,
		22, 24, 25, 27, 28, 30, 31, 33, 34, 36, 37, 39, 40, 42, 43, 45,
		46, 48, 49, 51, 52, 54, 55, 57, 58, 60, 61, 63, 63, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
	{
		0, 1, 2, 4, 5, 7, 8, 9, 11, 12, 14, 15, 17, 18, 20, 21,
		23, 24, 26, 27, 29, 30, 32, 33, 35, 36, 38, 39, 41, 42, 44, 45,
		47, 48, 50, 51, 53, 54, 56, 57, 59, 60, 62, 63, 63, 63, 63, 63,
		63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63, 63,
	},
}

// FilterStrengthFromDelta returns the approximate filter strength needed to
// smooth an edge step of delta at the given sharpness.
func FilterStrengthFromDelta(sharpness, delta int) int {
	pos := delta
	if pos >= maxDeltaSize {
		pos = maxDeltaSize - 1
	}
	if pos < 0 {
		pos = 0
	}
	return int(kLevelsFromDelta[sharpness&7][pos])
}

// FilterHeader describes the loop filter the decoder will apply.
type FilterHeader struct {
	Simple    bool // simple filter instead of the normal one
	Level     int  // base level, 0..63
	Sharpness int  // 0..7
}

// fstrengthCutoff is the strength below which filtering is disabled.
const fstrengthCutoff = 2

// SetupFilterStrength derives each segment's filter strength from its
// quantizer and complexity.
func (e *Encoder) SetupFilterStrength() {
	level0 := 5 * e.cfg.FilterStrength
	for i := range e.dqm {
		m := &e.dqm[i]
		qstep := int(kAcTable[clip(m.Quant, 0, 127)]) >> 2
		base := FilterStrengthFromDelta(e.filterHdr.Sharpness, qstep)
		f := base * level0 / (256 + m.Beta)
		switch {
		case f < fstrengthCutoff:
			m.FStrength = 0
		case f > 63:
			m.FStrength = 63
		default:
			m.FStrength = f
		}
	}
	e.filterHdr.Level = e.dqm[0].FStrength
	e.filterHdr.Simple = e.cfg.FilterType == 0
	e.filterHdr.Sharpness = e.cfg.FilterSharpness
}

// AdjustFilterStrength raises the segment strengths so the sharpest edges
// the encoder left in flat macroblocks get smoothed.
func (e *Encoder) AdjustFilterStrength() {
	if e.cfg.FilterStrength <= 0 {
		return
	}
	maxLevel := 0
	for s := range e.dqm {
		m := &e.dqm[s]
		// >> 3 accounts for the inverse WHT scaling.
		delta := (m.MaxEdge * m.Y2.Q[1]) >> 3
		if level := FilterStrengthFromDelta(e.filterHdr.Sharpness, delta); level > m.FStrength {
			m.FStrength = level
		}
		if m.FStrength > maxLevel {
			maxLevel = m.FStrength
		}
	}
	e.filterHdr.Level = maxLevel
}
