package lossy

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/deepteams/vp8rdo/internal/dsp"
)

const (
	maxCoeffThresh = 31 // histogram bins of |coeff| >> 3
	maxAlpha       = 255
	alphaScale     = 2 * maxAlpha
	maxItersKMeans = 6

	// Only DC and TM are tried: they are enough to rank complexity.
	maxIntra16Mode = 2
	maxUVMode      = 2
)

// histogram is the distribution of transformed residual magnitudes of a
// macroblock.
type histogram struct {
	distribution [maxCoeffThresh + 1]int
}

// collect adds the residual blocks src-pred at the given offsets.
func (h *histogram) collect(src, pred []byte, offsets []int) {
	var out [16]int16
	for _, off := range offsets {
		dsp.FTransform(src[off:], pred[off:], out[:])
		for _, c := range out {
			v := absLevel(c) >> 3
			if v > maxCoeffThresh {
				v = maxCoeffThresh
			}
			h.distribution[v]++
		}
	}
}

// alpha rates how spread the distribution is. Spread-out residuals mean
// the prediction failed: the block is complex. The value is not clamped;
// analyzeMB clips the mix of luma and chroma.
func (h *histogram) alpha() int {
	maxValue, lastNonZero := 0, 1
	for k, n := range h.distribution {
		if n > 0 {
			maxValue = max(maxValue, n)
			lastNonZero = k
		}
	}
	if maxValue <= 1 {
		return 0
	}
	return alphaScale * lastNonZero / maxValue
}

// analyze computes the complexity of every macroblock from the source and
// clusters the macroblocks into segments. Rows are independent and run
// concurrently.
func (e *Encoder) analyze(ctx context.Context) error {
	doSegments := e.cfg.EmulateJPEGSize || e.segmentHdr.NumSegments > 1 || e.cfg.Method <= 1
	if !doSegments {
		e.resetMBInfo()
		return nil
	}

	type rowSums struct{ alpha, uvAlpha int }
	sums := make([]rowSums, e.mbH)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.threads())
	for y := 0; y < e.mbH; y++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			it := newIterator(e)
			defer it.release()
			var top [32]uint8
			it.SetRow(y)
			for x := 0; x < e.mbW; x++ {
				it.SetPosition(x)
				it.Import()
				it.importSourceEdges(top[:])
				alpha, uvAlpha := it.analyzeMB(top[:])
				sums[y].alpha += alpha
				sums[y].uvAlpha += uvAlpha
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "analysis")
	}

	var alpha, uvAlpha int
	for _, s := range sums {
		alpha += s.alpha
		uvAlpha += s.uvAlpha
	}
	total := len(e.mbInfo)
	e.alpha = alpha / total
	e.uvAlpha = uvAlpha / total

	e.assignSegments()
	if e.cfg.SmoothSegments {
		e.smoothSegmentMap()
	}
	return nil
}

// resetMBInfo puts every macroblock in segment 0 with neutral complexity.
func (e *Encoder) resetMBInfo() {
	for i := range e.mbInfo {
		mb := &e.mbInfo[i]
		mb.Type = MBTypeI16
		mb.Mode16 = DCPred
		mb.UVMode = DCPred
		mb.Segment = 0
		mb.Alpha = 0
	}
	e.dqm[0].Alpha = 0
	e.dqm[0].Beta = 0
	e.alpha = 0
	e.uvAlpha = 0
}

// analyzeMB rates the current macroblock. It returns the mixed luma/chroma
// alpha (high means easy to compress) and the raw chroma alpha.
func (it *Iterator) analyzeMB(top []uint8) (alpha, uvAlpha int) {
	bestAlpha := 0
	if it.enc.cfg.Method <= 1 {
		it.fastAnalyze()
	} else {
		bestAlpha = it.analyzeBestIntra16(top)
	}
	uvAlpha = it.analyzeBestUV(top)

	alpha = (3*bestAlpha + uvAlpha + 2) >> 2
	alpha = clip(maxAlpha-alpha, 0, maxAlpha)
	it.mb.Alpha = alpha
	return alpha, uvAlpha
}

// analyzeBestIntra16 commits the 16x16 mode whose residual distribution
// has the highest alpha and returns that alpha.
func (it *Iterator) analyzeBestIntra16(top []uint8) int {
	var left, t []byte
	if it.x > 0 {
		left = it.yLeft[:]
	}
	if it.y > 0 {
		t = top[:16]
	}
	dsp.PredLuma16(it.yuvP, left, t)

	bestAlpha, bestMode := -1, DCPred
	for mode := 0; mode < maxIntra16Mode; mode++ {
		var h histogram
		h.collect(it.yuvIn[dsp.YOff:], it.yuvP[dsp.I16ModeOffsets[mode]:], dsp.Scan[:])
		if a := h.alpha(); a > bestAlpha {
			bestAlpha, bestMode = a, mode
		}
	}
	it.SetIntra16Mode(bestMode)
	return bestAlpha
}

// analyzeBestUV commits the chroma mode whose residual distribution has
// the highest alpha and returns that alpha.
func (it *Iterator) analyzeBestUV(top []uint8) int {
	var leftU, leftV, t []byte
	if it.x > 0 {
		leftU, leftV = it.uLeft[:], it.vLeft[:]
	}
	if it.y > 0 {
		t = top[16:32]
	}
	dsp.PredChroma8(it.yuvP, leftU, leftV, t)

	bestAlpha, bestMode := -1, DCPred
	for mode := 0; mode < maxUVMode; mode++ {
		var h histogram
		h.collect(it.yuvIn[dsp.UOff:], it.yuvP[dsp.UVModeOffsets[mode]:], dsp.ScanUV[:])
		if a := h.alpha(); a > bestAlpha {
			bestAlpha, bestMode = a, mode
		}
	}
	it.SetIntraUVMode(bestMode)
	return bestAlpha
}

// fastAnalyze picks the macroblock type from the spread of its sixteen
// sub-block means: uniform means favour 16x16. Low methods keep this type
// for the whole encode.
func (it *Iterator) fastAnalyze() {
	q := int(it.enc.cfg.Quality)
	threshold := uint64(8 + (17-8)*q/100)
	var m, m2 uint64
	for k := 0; k < 16; k++ {
		blk := it.yuvIn[dsp.YOff+dsp.Scan[k]:]
		var dc uint64
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				dc += uint64(blk[x+y*dsp.BPS])
			}
		}
		m += dc
		m2 += dc * dc
	}
	if threshold*m2 < m*m {
		it.SetIntra16Mode(DCPred)
	} else {
		var modes [16]uint8 // all DC
		it.SetIntra4Mode(&modes)
	}
}

// assignSegments clusters the macroblock alphas with a k-means over their
// histogram and derives each segment's alpha and beta.
func (e *Encoder) assignSegments() {
	nb := e.segmentHdr.NumSegments
	var histo [maxAlpha + 1]int
	for i := range e.mbInfo {
		histo[e.mbInfo[i].Alpha]++
	}

	// Bracket the input.
	minA := 0
	for minA < maxAlpha && histo[minA] == 0 {
		minA++
	}
	maxA := maxAlpha
	for maxA > minA && histo[maxA] == 0 {
		maxA--
	}
	rangeA := maxA - minA

	// Spread the initial centers evenly.
	var centers [NumMBSegments]int
	for k, n := 0, 1; k < nb; k, n = k+1, n+2 {
		centers[k] = minA + n*rangeA/(2*nb)
	}

	var alphaMap [maxAlpha + 1]int
	weightedAverage := 0
	for iter := 0; iter < maxItersKMeans; iter++ {
		var accum, distAccum [NumMBSegments]int
		// Assign each alpha to its nearest center.
		n := 0
		for a := minA; a <= maxA; a++ {
			if histo[a] == 0 {
				continue
			}
			for n+1 < nb && abs(a-centers[n+1]) < abs(a-centers[n]) {
				n++
			}
			alphaMap[a] = n
			distAccum[n] += a * histo[a]
			accum[n] += histo[a]
		}
		// Move the centers to the middle of their cloud.
		displaced := 0
		weightedAverage = 0
		totalWeight := 0
		for n := 0; n < nb; n++ {
			if accum[n] == 0 {
				continue
			}
			newCenter := (distAccum[n] + accum[n]/2) / accum[n]
			displaced += abs(centers[n] - newCenter)
			centers[n] = newCenter
			weightedAverage += newCenter * accum[n]
			totalWeight += accum[n]
		}
		weightedAverage = (weightedAverage + totalWeight/2) / totalWeight
		if displaced < 5 {
			break
		}
	}

	for i := range e.mbInfo {
		mb := &e.mbInfo[i]
		s := alphaMap[mb.Alpha]
		mb.Segment = uint8(s)
		mb.Alpha = centers[s]
	}
	e.setSegmentAlphas(&centers, weightedAverage)
}

func (e *Encoder) setSegmentAlphas(centers *[NumMBSegments]int, mid int) {
	nb := e.segmentHdr.NumSegments
	minC, maxC := centers[0], centers[0]
	for n := 1; n < nb; n++ {
		minC = min(minC, centers[n])
		maxC = max(maxC, centers[n])
	}
	if maxC == minC {
		maxC = minC + 1
	}
	for n := 0; n < nb; n++ {
		alpha := 255 * (centers[n] - mid) / (maxC - minC)
		beta := 255 * (centers[n] - minC) / (maxC - minC)
		e.dqm[n].Alpha = clip(alpha, -127, 127)
		e.dqm[n].Beta = clip(beta, 0, 255)
	}
}

// smoothSegmentMap replaces the segment of every inner macroblock by the
// one held by at least five of its 3x3 neighbourhood, if any.
func (e *Encoder) smoothSegmentMap() {
	const majority = 5
	w, h := e.mbW, e.mbH
	if w < 3 || h < 3 {
		return
	}
	tmp := make([]uint8, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var cnt [NumMBSegments]int
			seg := e.mbInfo[x+w*y].Segment
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					cnt[e.mbInfo[x+dx+w*(y+dy)].Segment]++
				}
			}
			for n := 0; n < NumMBSegments; n++ {
				if cnt[n] >= majority {
					seg = uint8(n)
				}
			}
			tmp[x+y*w] = seg
		}
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			e.mbInfo[x+w*y].Segment = tmp[x+w*y]
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
