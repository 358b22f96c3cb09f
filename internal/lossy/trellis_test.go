package lossy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/vp8rdo/internal/dsp"
)

func trellisProba() *Proba {
	p := NewProba()
	p.CalculateLevelCosts()
	return p
}

// bruteForceTrellis scores every combination of levels the trellis is
// allowed to visit and returns the best score.
func bruteForceTrellis(p *Proba, in [16]int16, ctx0, coeffType int, mtx *Matrix, lambda int) int64 {
	first := 0
	if coeffType == TypeI16AC {
		first = 1
	}
	thresh := mtx.Q[1] * mtx.Q[1] / 4
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

	var level0 [16]int
	var coeff0 [16]int
	for n := first; n <= last; n++ {
		j := dsp.Zigzag[n]
		coeff0[n] = absLevel(in[j]) + mtx.Sharpen[j]
		level0[n] = quantDiv(coeff0[n], mtx.IQ[j], 0)
		if level0[n] > MaxLevel {
			level0[n] = MaxLevel
		}
	}

	res := p.residual(first, coeffType)
	best := rdScoreTrellis(lambda, int64(dsp.BitCost(0, p.Coeffs[coeffType][dsp.EncBands[first]][ctx0][0])), 0)
	span := last - first + 1
	for mask := 0; mask < 1<<span; mask++ {
		var levels [16]int16
		for n := first; n <= last; n++ {
			l := level0[n] + (mask>>(n-first))&1
			if l > MaxLevel {
				l = MaxLevel
			}
			levels[n] = int16(l)
		}
		// Every truncation point ending on a non-zero level.
		for end := first; end <= last; end++ {
			if levels[end] == 0 {
				continue
			}
			var cand [16]int16
			copy(cand[first:end+1], levels[first:end+1])
			res.setCoeffs(cand[:])
			rate := int64(res.getCost(ctx0))
			var disto int64
			for n := first; n <= end; n++ {
				j := dsp.Zigzag[n]
				e := coeff0[n] - int(cand[n])*mtx.Q[j]
				disto += int64(kWeightTrellis[j] * (e*e - coeff0[n]*coeff0[n]))
			}
			if s := rdScoreTrellis(lambda, rate, disto); s < best {
				best = s
			}
		}
	}
	return best
}

func randomBlock(rng *rand.Rand, span, amp int) [16]int16 {
	var in [16]int16
	for n := 0; n < span; n++ {
		in[dsp.Zigzag[n]] = int16(rng.Intn(2*amp+1) - amp)
	}
	return in
}

func TestTrellisMatchesBruteForce(t *testing.T) {
	p := trellisProba()
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		name      string
		coeffType int
		class     int
	}{
		{"i4", TypeI4, matrixY1},
		{"i16ac", TypeI16AC, matrixY1},
		{"uv", TypeChroma, matrixUV},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, q := range []int{10, 40, 90} {
				mtx := testMatrix(q, tc.class)
				q4 := mtx.Q[1]
				lambda := (7 * q4 * q4) >> 3
				for iter := 0; iter < 20; iter++ {
					in := randomBlock(rng, 6, 6*q4)
					for ctx0 := 0; ctx0 < 3; ctx0++ {
						work := in
						var out [16]int16
						_, got := p.trellisQuantize(work[:], out[:], ctx0, tc.coeffType, mtx, lambda)
						want := bruteForceTrellis(p, in, ctx0, tc.coeffType, mtx, lambda)
						require.Equal(t, want, got, "q=%d iter=%d ctx0=%d", q, iter, ctx0)
					}
				}
			}
		})
	}
}

func TestTrellisAllZero(t *testing.T) {
	p := trellisProba()
	mtx := testMatrix(30, matrixY1)
	levels, dequant, nz := p.TrellisQuantizeBlock([16]int16{}, 0, TypeI4, mtx, 1000)
	require.False(t, nz)
	require.Equal(t, [16]int16{}, levels)
	require.Equal(t, [16]int16{}, dequant)
}

func TestTrellisOutputConsistent(t *testing.T) {
	p := trellisProba()
	rng := rand.New(rand.NewSource(11))
	mtx := testMatrix(25, matrixY1)
	lambda := (7 * mtx.Q[1] * mtx.Q[1]) >> 3
	for iter := 0; iter < 50; iter++ {
		in := randomBlock(rng, 16, 8*mtx.Q[1])
		levels, dequant, nz := p.TrellisQuantizeBlock(in, 1, TypeI4, mtx, lambda)
		nonZero := false
		for n := 0; n < 16; n++ {
			j := dsp.Zigzag[n]
			require.Equal(t, int(levels[n])*mtx.Q[j], int(dequant[j]))
			if levels[n] != 0 {
				nonZero = true
				require.Equal(t, in[j] < 0, levels[n] < 0, "sign at %d", n)
			}
		}
		require.Equal(t, nonZero, nz)
	}
}

func TestTrellisKeepsDCOfACBlock(t *testing.T) {
	p := trellisProba()
	mtx := testMatrix(30, matrixY1)
	in := [16]int16{123, 400, -300}
	levels, dequant, _ := p.TrellisQuantizeBlock(in, 0, TypeI16AC, mtx, 500)
	require.Zero(t, levels[0])
	require.Equal(t, int16(123), dequant[0])
}

func TestTrellisNeverWorseThanPlainQuantizer(t *testing.T) {
	p := trellisProba()
	rng := rand.New(rand.NewSource(3))
	mtx := testMatrix(50, matrixUV)
	lambda := (7 * mtx.Q[1] * mtx.Q[1]) >> 3
	res := p.residual(0, TypeChroma)
	score := func(in, levels [16]int16) int64 {
		res.setCoeffs(levels[:])
		rate := int64(res.getCost(0))
		var d int64
		for n := 0; n < 16; n++ {
			j := dsp.Zigzag[n]
			c := absLevel(in[j])
			e := c - absLevel(levels[n])*mtx.Q[j]
			d += int64(kWeightTrellis[j] * (e*e - c*c))
		}
		return rdScoreTrellis(lambda, rate, d)
	}
	for iter := 0; iter < 50; iter++ {
		in := randomBlock(rng, 10, 5*mtx.Q[1])
		plain, _, _ := QuantizeBlock(in, 0, mtx)
		trellis, _, _ := p.TrellisQuantizeBlock(in, 0, TypeChroma, mtx, lambda)
		// Rounded-down or rounded-up levels only; the plain quantizer's
		// biased rounding may fall outside that set, so only compare when
		// it does not.
		inRange := true
		for n := 0; n < 16; n++ {
			j := dsp.Zigzag[n]
			l0 := quantDiv(absLevel(in[j]), mtx.IQ[j], 0)
			if a := absLevel(plain[n]); a != 0 && a != l0 && a != l0+1 {
				inRange = false
			}
		}
		if inRange {
			require.LessOrEqual(t, score(in, trellis), score(in, plain))
		}
	}
}

func BenchmarkTrellisQuantize(b *testing.B) {
	p := trellisProba()
	rng := rand.New(rand.NewSource(1))
	mtx := testMatrix(40, matrixY1)
	lambda := (7 * mtx.Q[1] * mtx.Q[1]) >> 3
	in := randomBlock(rng, 16, 6*mtx.Q[1])
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.TrellisQuantizeBlock(in, 0, TypeI4, mtx, lambda)
	}
}
