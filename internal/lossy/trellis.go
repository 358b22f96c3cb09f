package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// maxCost marks a dead trellis node.
const maxCost = int64(0x7fffffffffffff)

// Levels tried around the neutrally rounded level of each coefficient.
const (
	minDelta = 0
	maxDelta = 1
	numNodes = minDelta + 1 + maxDelta
)

type trellisNode struct {
	prev  int // best predecessor, as a delta index
	level int
	sign  bool
	score int64    // partial RD score
	costs []uint16 // level costs of the context this node leads into
}

func rdScoreTrellis(lambda int, rate, distortion int64) int64 {
	return rate*int64(lambda) + 256*distortion
}

// TrellisQuantizeBlock quantizes the raster-order coefficients in by
// minimizing rate*lambda + distortion over the whole block. It returns the
// levels in zigzag order, their dequantized values in raster order, and
// whether any level is non-zero. ctx0 is the context (0..2) of the first
// coefficient.
func (p *Proba) TrellisQuantizeBlock(in [16]int16, ctx0, coeffType int, mtx *Matrix, lambda int) (levels, dequant [16]int16, nz bool) {
	dequant = in
	nz, _ = p.trellisQuantize(dequant[:], levels[:], ctx0, coeffType, mtx, lambda)
	return levels, dequant, nz
}

// trellisQuantize works in place: in receives the dequantized values and
// out the levels. It also returns the score of the chosen path.
func (p *Proba) trellisQuantize(in, out []int16, ctx0, coeffType int, mtx *Matrix, lambda int) (bool, int64) {
	probas := &p.Coeffs[coeffType]
	costs := &p.LevelCost[coeffType]
	first := 0
	if coeffType == TypeI16AC {
		first = 1
	}

	// nodes[n+1] holds the candidates of zigzag position n; nodes[first]
	// is the source.
	var nodes [17][numNodes]trellisNode
	node := func(n, m int) *trellisNode { return &nodes[n+1][m+minDelta] }
	bestPath := [3]int{-1, -1, -1} // last position, node delta, predecessor

	thresh := mtx.Q[1] * mtx.Q[1] / 4
	lastProba := probas[dsp.EncBands[first]][ctx0][0]

	// Positions past the last significant coefficient plus one are not
	// worth inspecting.
	last := first - 1
	for n := 15; n >= first; n-- {
		j := dsp.Zigzag[n]
		if int(in[j])*int(in[j]) > thresh {
			last = n
			break
		}
	}
	if last < 15 {
		last++
	}

	// Coding nothing is the score to beat.
	bestScore := rdScoreTrellis(lambda, int64(dsp.BitCost(0, lastProba)), 0)

	for m := -minDelta; m <= maxDelta; m++ {
		rate := int64(0)
		if ctx0 == 0 {
			rate = int64(dsp.BitCost(1, lastProba))
		}
		src := node(first-1, m)
		src.score = rdScoreTrellis(lambda, rate, 0)
		src.costs = costs[dsp.EncBands[first]][ctx0][:]
	}

	for n := first; n <= last; n++ {
		j := dsp.Zigzag[n]
		q := mtx.Q[j]
		iq := mtx.IQ[j]
		// Work on the magnitude of the original coefficient so levels
		// stay non-negative.
		sign := in[j] < 0
		coeff0 := absLevel(in[j]) + mtx.Sharpen[j]
		level0 := quantDiv(coeff0, iq, 0)
		if level0 > MaxLevel {
			level0 = MaxLevel
		}

		for m := -minDelta; m <= maxDelta; m++ {
			cur := node(n, m)
			level := level0 + m
			cur.score = maxCost
			if level > MaxLevel || level < 0 {
				continue
			}
			ctx := level
			if ctx > 2 {
				ctx = 2
			}
			band := dsp.EncBands[n+1]
			cur.sign = sign
			cur.level = level
			cur.costs = costs[band][ctx][:]
			cur.prev = 0

			var lastPosCost int64
			if n < 15 {
				lastPosCost = int64(dsp.BitCost(0, probas[band][ctx][0]))
			}

			// Distortion is measured relative to coding a zero.
			newError := coeff0 - level*q
			deltaError := int64(kWeightTrellis[j] * (newError*newError - coeff0*coeff0))
			baseScore := rdScoreTrellis(lambda, 0, deltaError)

			for pm := -minDelta; pm <= maxDelta; pm++ {
				prev := node(n-1, pm)
				if prev.score >= maxCost {
					continue
				}
				cost := int64(dsp.LevelCost(prev.costs, level))
				score := baseScore + prev.score + rdScoreTrellis(lambda, cost, 0)
				if score < cur.score {
					cur.score = score
					cur.prev = pm
				}
			}

			if cur.level != 0 {
				score := cur.score + rdScoreTrellis(lambda, lastPosCost, 0)
				if score < bestScore {
					bestScore = score
					bestPath = [3]int{n, cur.level - level0, cur.prev}
				}
			}
		}
	}

	for i := first; i < 16; i++ {
		in[i] = 0
	}
	for i := range out[:16] {
		out[i] = 0
	}
	if bestPath[0] == -1 {
		return false, bestScore
	}

	// The terminal node's best predecessor may differ from the one kept
	// for the non-terminal hypothesis.
	bestNode := bestPath[1]
	n := bestPath[0]
	node(n, bestNode).prev = bestPath[2]
	nz := 0
	for ; n >= first; n-- {
		cur := node(n, bestNode)
		j := dsp.Zigzag[n]
		if cur.sign {
			out[n] = int16(-cur.level)
		} else {
			out[n] = int16(cur.level)
		}
		nz |= cur.level
		in[j] = int16(int(out[n]) * mtx.Q[j])
		bestNode = cur.prev
	}
	return nz != 0, bestScore
}
