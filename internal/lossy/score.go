package lossy

// MaxCost is the score of a candidate that has not been evaluated.
const MaxCost = maxCost

// Flatness limits, in non-zero AC levels, above which a candidate is not
// considered flat.
const (
	flatnessLimitI16 = 10
	flatnessLimitI4  = 3
	flatnessLimitUV  = 2
	flatnessPenalty  = 140 // added per block to non-DC modes on flat content
)

// i4Penalty approximates the extra mode bits of a 4x4 macroblock when
// modes are chosen on distortion alone.
const i4Penalty = 4000

// ModeScore is the rate-distortion account of one candidate decision.
type ModeScore struct {
	D     int64 // sum of squared errors
	SD    int64 // spectral distortion
	H     int64 // header (mode) bits, 1/256 bit units
	R     int64 // residual bits, 1/256 bit units
	Score int64
	NZ    uint32 // non-zero mask: bits 0..15 luma, 16..23 chroma, 24 Y2

	YDCLevels [16]int16
	YACLevels [16][16]int16
	UVLevels  [4 + 4][16]int16

	ModeI16 int
	ModesI4 [16]uint8
	ModeUV  int
}

// InitScore resets the account to an unevaluated candidate.
func (rd *ModeScore) InitScore() {
	rd.D = 0
	rd.SD = 0
	rd.R = 0
	rd.H = 0
	rd.NZ = 0
	rd.Score = MaxCost
}

// CopyScore copies the account of src, leaving levels and modes alone.
func (rd *ModeScore) CopyScore(src *ModeScore) {
	rd.D = src.D
	rd.SD = src.SD
	rd.R = src.R
	rd.H = src.H
	rd.NZ = src.NZ
	rd.Score = src.Score
}

// AddScore accumulates the account of src.
func (rd *ModeScore) AddScore(src *ModeScore) {
	rd.D += src.D
	rd.SD += src.SD
	rd.R += src.R
	rd.H += src.H
	rd.NZ |= src.NZ
	rd.Score += src.Score
}

// SetRDScore sets Score = (R+H)*lambda + 256*(D+SD).
func (rd *ModeScore) SetRDScore(lambda int) {
	rd.Score = (rd.R+rd.H)*int64(lambda) + 256*(rd.D+rd.SD)
}

// mult8b returns (a*b + 128) >> 8.
func mult8b(a, b int) int64 {
	return int64((a*b + 128) >> 8)
}

// isFlat reports whether blocks hold at most thresh non-zero AC levels in
// total.
func isFlat(blocks [][16]int16, thresh int) bool {
	score := 0
	for b := range blocks {
		for _, v := range blocks[b][1:] {
			if v != 0 {
				score++
				if score > thresh {
					return false
				}
			}
		}
	}
	return true
}
