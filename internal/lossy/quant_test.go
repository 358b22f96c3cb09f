package lossy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/vp8rdo/internal/dsp"
)

func testMatrix(q int, class int) *Matrix {
	m := &Matrix{}
	m.Q[0] = int(kDcTable[q])
	m.Q[1] = int(kAcTable[q])
	ExpandMatrix(m, class)
	return m
}

func TestQuantizeBlockZeroesBelowThreshold(t *testing.T) {
	m := testMatrix(40, matrixUV)
	var in [16]int16
	for i := range in {
		in[i] = int16(m.ZThresh[i])
		if i%2 == 1 {
			in[i] = -in[i]
		}
	}
	levels, dequant, nz := QuantizeBlock(in, 0, m)
	require.False(t, nz)
	require.Equal(t, [16]int16{}, levels)
	require.Equal(t, [16]int16{}, dequant)
}

func TestQuantizeBlockDequantizes(t *testing.T) {
	m := testMatrix(20, matrixY1)
	in := [16]int16{300, -250, 120, 0, -60, 45, 10, -5, 200, -180, 0, 3, 90, -90, 30, -1}
	levels, dequant, nz := QuantizeBlock(in, 0, m)
	require.True(t, nz)
	for n := 0; n < 16; n++ {
		j := dsp.Zigzag[n]
		require.Equal(t, int(levels[n])*m.Q[j], int(dequant[j]), "position %d", n)
		if levels[n] != 0 {
			require.Equal(t, in[j] < 0, levels[n] < 0, "sign at %d", n)
		}
	}
}

func TestQuantizeBlockSkipsDC(t *testing.T) {
	m := testMatrix(20, matrixY1)
	in := [16]int16{500, 200}
	levels, dequant, _ := QuantizeBlock(in, 1, m)
	require.Zero(t, levels[0])
	require.Equal(t, int16(500), dequant[0])
	require.NotZero(t, levels[1])
}

func TestQuantizeBlockClampsLevel(t *testing.T) {
	m := &Matrix{}
	m.Q[0], m.Q[1] = 4, 4
	ExpandMatrix(m, matrixUV)
	in := [16]int16{32000}
	levels, _, nz := QuantizeBlock(in, 0, m)
	require.True(t, nz)
	require.Equal(t, int16(MaxLevel), levels[0])
}
