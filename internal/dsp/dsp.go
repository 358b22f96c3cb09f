// Package dsp holds the pixel-level primitives of the VP8 encoder:
// transforms, distortion metrics, intra predictors and the entropy cost
// tables shared by the rate-distortion loop.
package dsp

import "sync"

// BPS is the stride of the encoder's block work buffers.
const BPS = 32

// Work buffer layout. The 16x16 luma block sits on top, the two 8x8 chroma
// blocks side by side below it (U left, V right).
const (
	YOff    = 0
	UOff    = 16 * BPS
	VOff    = UOff + 8
	YUVSize = 24 * BPS
)

// Prediction buffer layout. Every candidate prediction of a macroblock has
// its own slot so the pickers can compare them without recomputing.
const (
	I16DC16 = 0
	I16TM16 = I16DC16 + 16
	I16VE16 = 16 * BPS
	I16HE16 = I16VE16 + 16

	// Chroma slots hold U in columns 0..7 and V in columns 8..15.
	C8DC8 = 32 * BPS
	C8TM8 = C8DC8 + 16
	C8VE8 = 40 * BPS
	C8HE8 = C8VE8 + 16

	I4DC4 = 48 * BPS
	I4TM4 = I4DC4 + 4
	I4VE4 = I4DC4 + 8
	I4HE4 = I4DC4 + 12
	I4RD4 = I4DC4 + 16
	I4VR4 = I4DC4 + 20
	I4LD4 = I4DC4 + 24
	I4VL4 = I4DC4 + 28
	I4HD4 = 52 * BPS
	I4HU4 = I4HD4 + 4
	I4TMP = I4HD4 + 8

	PredSize = 56 * BPS
)

// I16ModeOffsets, UVModeOffsets and I4ModeOffsets map a prediction mode to
// its slot in the prediction buffer. Modes are ordered DC, TM, VE, HE, then
// RD, VR, LD, VL, HD, HU for 4x4 blocks.
var (
	I16ModeOffsets = [4]int{I16DC16, I16TM16, I16VE16, I16HE16}
	UVModeOffsets  = [4]int{C8DC8, C8TM8, C8VE8, C8HE8}
	I4ModeOffsets  = [10]int{I4DC4, I4TM4, I4VE4, I4HE4, I4RD4, I4VR4, I4LD4, I4VL4, I4HD4, I4HU4}
)

// Scan maps a 4x4 luma sub-block index (raster order) to its offset in a
// work buffer.
var Scan = [16]int{
	0 + 0*BPS, 4 + 0*BPS, 8 + 0*BPS, 12 + 0*BPS,
	0 + 4*BPS, 4 + 4*BPS, 8 + 4*BPS, 12 + 4*BPS,
	0 + 8*BPS, 4 + 8*BPS, 8 + 8*BPS, 12 + 8*BPS,
	0 + 12*BPS, 4 + 12*BPS, 8 + 12*BPS, 12 + 12*BPS,
}

// ScanUV maps a chroma sub-block index (4 U blocks then 4 V blocks) to its
// offset relative to UOff.
var ScanUV = [8]int{
	0 + 0*BPS, 4 + 0*BPS, 0 + 4*BPS, 4 + 4*BPS,
	8 + 0*BPS, 12 + 0*BPS, 8 + 4*BPS, 12 + 4*BPS,
}

// Function variables for dispatch. Init points them at the pure-Go
// implementations.
var (
	FTransform    func(src, ref []byte, out []int16)
	FTransform2   func(src, ref []byte, out []int16)
	ITransform    func(ref []byte, in []int16, dst []byte, doTwo bool)
	FTransformWHT func(in, out []int16)
	ITransformWHT func(in, out []int16)

	SSE16x16    func(a, b []byte) int
	SSE16x8     func(a, b []byte) int
	SSE8x8      func(a, b []byte) int
	SSE4x4      func(a, b []byte) int
	TDisto4x4   func(a, b []byte, w []uint16) int
	TDisto16x16 func(a, b []byte, w []uint16) int
)

var initOnce sync.Once

// Init sets up the dispatch table and the cost tables. It is safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		FTransform = fTransform
		FTransform2 = fTransform2
		ITransform = iTransform
		FTransformWHT = fTransformWHT
		ITransformWHT = iTransformWHT

		SSE16x16 = sse16x16
		SSE16x8 = sse16x8
		SSE8x8 = sse8x8
		SSE4x4 = sse4x4
		TDisto4x4 = tDisto4x4
		TDisto16x16 = tDisto16x16

		initCostTables()
	})
}

func init() {
	Init()
}
