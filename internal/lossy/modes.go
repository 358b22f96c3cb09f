package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

const (
	NumTypes      = 4
	NumBands      = 8
	NumCtx        = 3
	NumProbas     = dsp.NumProbas
	NumMBSegments = 4
	NumPredModes  = 4
	NumBModes     = 10

	MaxLevel         = dsp.MaxLevel
	MaxVariableLevel = dsp.MaxVariableLevel
)

// 16x16 luma and 8x8 chroma prediction modes.
const (
	DCPred = iota
	TMPred
	VEPred
	HEPred
)

// 4x4 luma prediction modes.
const (
	BDCPred = iota
	BTMPred
	BVEPred
	BHEPred
	BRDPred
	BVRPred
	BLDPred
	BVLPred
	BHDPred
	BHUPred
)

// Coefficient types, as used to index the probability tables.
const (
	TypeI16AC  = 0 // luma AC of a 16x16 macroblock, DC carried by Y2
	TypeI16DC  = 1 // the Y2 block
	TypeChroma = 2
	TypeI4     = 3 // luma of a 4x4 macroblock, DC included
)

// RDLevel selects how much rate-distortion optimization Decimate performs.
type RDLevel int

const (
	// RDNone picks modes by distortion only.
	RDNone RDLevel = iota
	// RDBasic scores every mode by rate and distortion.
	RDBasic
	// RDTrellis adds trellis quantization of the final decision.
	RDTrellis
	// RDTrellisAll runs the trellis while evaluating every mode.
	RDTrellisAll
)

func (l RDLevel) String() string {
	switch l {
	case RDNone:
		return "none"
	case RDBasic:
		return "basic"
	case RDTrellis:
		return "trellis"
	case RDTrellisAll:
		return "trellis-all"
	}
	return "unknown"
}

var i16ModeNames = [NumPredModes]string{"DC", "TM", "VE", "HE"}

var i4ModeNames = [NumBModes]string{"DC", "TM", "VE", "HE", "RD", "VR", "LD", "VL", "HD", "HU"}

// ModeName returns the short name of a 16x16 or chroma mode.
func ModeName(mode uint8) string {
	if int(mode) < len(i16ModeNames) {
		return i16ModeNames[mode]
	}
	return "?"
}

// BModeName returns the short name of a 4x4 mode.
func BModeName(mode uint8) string {
	if int(mode) < len(i4ModeNames) {
		return i4ModeNames[mode]
	}
	return "?"
}
