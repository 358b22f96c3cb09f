package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// FrameStats summarizes the final pass.
type FrameStats struct {
	PSNR [4]float64 // Y, U, V, all
	SSE  [3]uint64  // Y, U, V

	NbI4, NbI16, NbSkip int
	SegmentCounts       [NumMBSegments]int

	I16Modes [NumPredModes]int
	I4Modes  [NumBModes]int // over all 4x4 sub-blocks
	UVModes  [NumPredModes]int

	// Estimated sizes, in 1/256 bit.
	HeaderBits     int64 // mode signalling
	ResidualBits   int64 // coefficient tokens
	ProbaSize      int   // coefficient probability updates
	SegmentMapSize int

	Distortion int64 // sum of squared errors, as seen by the mode decision
	Passes     int
}

// frameTotals accumulates the account of the macroblocks of a row.
type frameTotals struct {
	d, h, r             int64
	nbI4, nbI16, nbSkip int
	segments            [NumMBSegments]int
	i16Modes            [NumPredModes]int
	i4Modes             [NumBModes]int
	uvModes             [NumPredModes]int
}

func (t *frameTotals) add(mb *MBInfo) {
	t.d += mb.D
	t.h += mb.H
	t.r += mb.R
	if mb.Type == MBTypeI16 {
		t.nbI16++
		t.i16Modes[mb.Mode16]++
	} else {
		t.nbI4++
		for _, m := range mb.Modes {
			t.i4Modes[m]++
		}
	}
	if mb.Skip {
		t.nbSkip++
	}
	t.uvModes[mb.UVMode]++
	t.segments[mb.Segment]++
}

func (t *frameTotals) merge(o *frameTotals) {
	t.d += o.d
	t.h += o.h
	t.r += o.r
	t.nbI4 += o.nbI4
	t.nbI16 += o.nbI16
	t.nbSkip += o.nbSkip
	for i := range t.segments {
		t.segments[i] += o.segments[i]
	}
	for i := range t.i16Modes {
		t.i16Modes[i] += o.i16Modes[i]
		t.uvModes[i] += o.uvModes[i]
	}
	for i := range t.i4Modes {
		t.i4Modes[i] += o.i4Modes[i]
	}
}

// finishStats fills the frame statistics from the final pass.
func (e *Encoder) finishStats(res *passResult) {
	t := &res.totals
	s := &e.stats
	s.NbI4, s.NbI16, s.NbSkip = t.nbI4, t.nbI16, t.nbSkip
	s.SegmentCounts = t.segments
	s.I16Modes = t.i16Modes
	s.I4Modes = t.i4Modes
	s.UVModes = t.uvModes
	s.HeaderBits = t.h
	s.ResidualBits = t.r
	s.Distortion = t.d
	s.SegmentMapSize = e.segmentHdr.Size

	uvW, uvH := (e.width+1)>>1, (e.height+1)>>1
	s.SSE[0] = dsp.PlaneSSE(e.srcY, e.srcYStride, e.outY, e.width, e.width, e.height)
	s.SSE[1] = dsp.PlaneSSE(e.srcU, e.srcUVStride, e.outU, uvW, uvW, uvH)
	s.SSE[2] = dsp.PlaneSSE(e.srcV, e.srcUVStride, e.outV, uvW, uvW, uvH)
	ySize, uvSize := e.width*e.height, uvW*uvH
	s.PSNR[0] = dsp.PSNRFromSSE(s.SSE[0], ySize)
	s.PSNR[1] = dsp.PSNRFromSSE(s.SSE[1], uvSize)
	s.PSNR[2] = dsp.PSNRFromSSE(s.SSE[2], uvSize)
	s.PSNR[3] = dsp.PSNRFromSSE(s.SSE[0]+s.SSE[1]+s.SSE[2], ySize+2*uvSize)
}
