package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// FixedCostsI4 is the cost of signalling each 4x4 mode, [top][left][mode].
var FixedCostsI4 [NumBModes][NumBModes][NumBModes]uint16

func init() {
	for top := 0; top < NumBModes; top++ {
		for left := 0; left < NumBModes; left++ {
			for mode := 0; mode < NumBModes; mode++ {
				FixedCostsI4[top][left][mode] = uint16(i4ModeCost(mode, &kBModesProba[top][left]))
			}
		}
	}
}

// i4ModeCost walks the 4x4 mode tree down to mode.
func i4ModeCost(mode int, p *[NumBModes - 1]uint8) int {
	bit := func(b bool, node int) int {
		if b {
			return dsp.BitCost(1, p[node])
		}
		return dsp.BitCost(0, p[node])
	}
	cost := bit(mode != BDCPred, 0)
	if mode == BDCPred {
		return cost
	}
	cost += bit(mode != BTMPred, 1)
	if mode == BTMPred {
		return cost
	}
	cost += bit(mode != BVEPred, 2)
	if mode == BVEPred {
		return cost
	}
	switch mode {
	case BHEPred, BRDPred, BVRPred:
		cost += bit(false, 3)
		cost += bit(mode != BHEPred, 4)
		if mode != BHEPred {
			cost += bit(mode == BVRPred, 5)
		}
	default:
		cost += bit(true, 3)
		cost += bit(mode != BLDPred, 6)
		if mode == BLDPred {
			return cost
		}
		cost += bit(mode != BVLPred, 7)
		if mode != BVLPred {
			cost += bit(mode == BHUPred, 8)
		}
	}
	return cost
}

// residual describes one block of levels (zigzag order) in its coding
// context.
type residual struct {
	first  int
	last   int // last non-zero position, -1 if none
	coeffs []int16
	prob   *[NumBands][NumCtx][NumProbas]uint8
	cost   *[NumBands][NumCtx]LevelCostTable
	stats  *[NumBands][NumCtx][NumProbas]BranchStat
}

func (p *Proba) residual(first, coeffType int) residual {
	return residual{
		first: first,
		prob:  &p.Coeffs[coeffType],
		cost:  &p.LevelCost[coeffType],
	}
}

func (r *residual) setCoeffs(levels []int16) {
	r.last = -1
	for n := 15; n >= r.first; n-- {
		if levels[n] != 0 {
			r.last = n
			break
		}
	}
	r.coeffs = levels
}

func absLevel(v int16) int {
	if v < 0 {
		return -int(v)
	}
	return int(v)
}

// getCost returns the rate of the block given the context ctx0 of its first
// coefficient.
func (r *residual) getCost(ctx0 int) int {
	n := r.first
	// band(first) == first for first <= 1.
	p0 := r.prob[n][ctx0][0]
	t := r.cost[n][ctx0][:]
	if r.last < 0 {
		return dsp.BitCost(0, p0)
	}
	cost := 0
	if ctx0 == 0 {
		cost = dsp.BitCost(1, p0)
	}
	for ; n < r.last; n++ {
		v := absLevel(r.coeffs[n])
		ctx := v
		if ctx > 2 {
			ctx = 2
		}
		cost += dsp.LevelCost(t, v)
		t = r.cost[dsp.EncBands[n+1]][ctx][:]
	}
	// The last coefficient is non-zero.
	v := absLevel(r.coeffs[n])
	cost += dsp.LevelCost(t, v)
	if n < 15 {
		ctx := 2
		if v == 1 {
			ctx = 1
		}
		cost += dsp.BitCost(0, r.prob[dsp.EncBands[n+1]][ctx][0])
	}
	return cost
}

// record accumulates the token-tree branches of the block into stats and
// reports whether the block has any non-zero level.
func (r *residual) record(ctx int) bool {
	n := r.first
	s := &r.stats[n][ctx]
	if r.last < 0 {
		s[0].record(false)
		return false
	}
	for n <= r.last {
		s[0].record(true)
		var v int
		for {
			v = int(r.coeffs[n])
			n++
			if v != 0 {
				break
			}
			s[1].record(false)
			s = &r.stats[dsp.EncBands[n]][0]
		}
		s[1].record(true)
		if v < 0 {
			v = -v
		}
		if !s[2].record(v > 1) {
			s = &r.stats[dsp.EncBands[n]][1]
			continue
		}
		switch {
		case !s[3].record(v > 4):
			if s[4].record(v != 2) {
				s[5].record(v == 4)
			}
		case !s[6].record(v > 10):
			s[7].record(v > 6)
		case !s[8].record(v >= 3+(8<<2)):
			s[9].record(v >= 3+(8<<1))
		default:
			s[10].record(v >= 3+(8<<3))
		}
		s = &r.stats[dsp.EncBands[n]][2]
	}
	if n < 16 {
		s[0].record(false)
	}
	return true
}

// CostLuma16 returns the rate of the levels of a 16x16 candidate.
func (it *Iterator) CostLuma16(rd *ModeScore) int {
	proba := it.enc.proba
	it.NzToBytes()

	res := proba.residual(0, TypeI16DC)
	res.setCoeffs(rd.YDCLevels[:])
	r := res.getCost(it.topNz[8] + it.leftNz[8])

	res = proba.residual(1, TypeI16AC)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			ctx := it.topNz[x] + it.leftNz[y]
			res.setCoeffs(rd.YACLevels[x+y*4][:])
			r += res.getCost(ctx)
			nz := b2i(res.last >= 0)
			it.topNz[x], it.leftNz[y] = nz, nz
		}
	}
	return r
}

// CostLuma4 returns the rate of the levels of the current 4x4 sub-block.
func (it *Iterator) CostLuma4(levels []int16) int {
	x, y := it.i4&3, it.i4>>2
	res := it.enc.proba.residual(0, TypeI4)
	res.setCoeffs(levels)
	return res.getCost(it.topNz[x] + it.leftNz[y])
}

// CostUV returns the rate of the chroma levels of a candidate.
func (it *Iterator) CostUV(rd *ModeScore) int {
	it.NzToBytes()
	res := it.enc.proba.residual(0, TypeChroma)
	r := 0
	for ch := 0; ch <= 2; ch += 2 {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				ctx := it.topNz[4+ch+x] + it.leftNz[4+ch+y]
				res.setCoeffs(rd.UVLevels[ch*2+x+y*2][:])
				r += res.getCost(ctx)
				nz := b2i(res.last >= 0)
				it.topNz[4+ch+x], it.leftNz[4+ch+y] = nz, nz
			}
		}
	}
	return r
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
