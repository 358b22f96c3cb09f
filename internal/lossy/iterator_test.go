package lossy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/vp8rdo/internal/dsp"
)

func newTestIterator(t *testing.T, p *testPicture) (*Encoder, *Iterator) {
	t.Helper()
	enc := p.encoder(t, DefaultConfig(75))
	it := newIterator(enc)
	t.Cleanup(it.release)
	return enc, it
}

func TestNzRoundTrip(t *testing.T) {
	_, it := newTestIterator(t, flatPicture(32, 32, 128))
	it.SetRow(0)
	it.SetPosition(1)
	rng := rand.New(rand.NewSource(5))
	for iter := 0; iter < 100; iter++ {
		var top, left [9]int
		for i := range top {
			top[i] = rng.Intn(2)
			left[i] = rng.Intn(2)
		}
		// The last sub-block of each plane sets both contexts.
		left[3], left[5], left[7] = top[3], top[5], top[7]
		it.topNz, it.leftNz = top, left
		it.BytesToNz()

		it.topNz, it.leftNz = [9]int{}, [9]int{}
		it.NzToBytes()
		require.Equal(t, top, it.topNz)
		for i := 0; i < 8; i++ {
			require.Equal(t, left[i], it.leftNz[i], "left %d", i)
		}
	}
}

func TestResetAfterSkip(t *testing.T) {
	enc, it := newTestIterator(t, flatPicture(32, 32, 128))
	it.SetRow(0)
	it.SetPosition(0)

	enc.nz[0] = 0xffffffff
	it.mb.Type = MBTypeI16
	it.leftNz[8] = 1
	it.resetAfterSkip()
	require.Zero(t, enc.nz[0])
	require.Zero(t, it.leftNz[8])

	enc.nz[0] = 0xffffffff
	it.mb.Type = MBTypeI4
	it.resetAfterSkip()
	require.Equal(t, uint32(1<<24), enc.nz[0])
	require.Equal(t, uint32(1<<24), it.leftNzWord)
}

func TestStartI4TopRow(t *testing.T) {
	_, it := newTestIterator(t, flatPicture(32, 32, 128))
	it.SetRow(0)
	it.SetPosition(0)
	it.StartI4()
	for i := 0; i < 16; i++ {
		require.Equal(t, uint8(129), it.i4Boundary[i], "left %d", i)
	}
	require.Equal(t, uint8(127), it.i4Boundary[16])
	for i := 17; i < 37; i++ {
		require.Equal(t, uint8(127), it.i4Boundary[i], "top %d", i)
	}
	require.Equal(t, kTopLeftI4[0], it.i4Top)
}

func TestStartI4LastColumnReplicatesTopRight(t *testing.T) {
	enc, it := newTestIterator(t, flatPicture(32, 32, 128))
	for i := range enc.yTop {
		enc.yTop[i] = uint8(i)
	}
	it.SetRow(1)
	it.SetPosition(1)
	it.StartI4()
	require.Equal(t, enc.yTop[16:32], it.i4Boundary[17:33])
	for i := 33; i < 37; i++ {
		require.Equal(t, enc.yTop[31], it.i4Boundary[i])
	}

	it.SetPosition(0)
	it.StartI4()
	require.Equal(t, enc.yTop[16:20], it.i4Boundary[33:37])
}

func TestRotateI4WalksAllSubBlocks(t *testing.T) {
	_, it := newTestIterator(t, flatPicture(32, 32, 128))
	it.SetRow(0)
	it.SetPosition(0)
	out := make([]byte, dsp.YUVSize)
	for i := range out {
		out[i] = uint8(i)
	}
	it.StartI4()
	n := 1
	for it.RotateI4(out) {
		n++
		require.Equal(t, kTopLeftI4[it.i4], it.i4Top)
	}
	require.Equal(t, 16, n)

	// After sub-block 0 the left samples of sub-block 1 are its right
	// column, stored bottom to top below the corner.
	it.StartI4()
	corner := it.i4Boundary[it.i4Top+3]
	it.RotateI4(out)
	top := it.i4Top
	require.Equal(t, corner, it.i4Boundary[top-1])
	for i := 0; i < 4; i++ {
		require.Equal(t, out[3+i*dsp.BPS], it.i4Boundary[top-2-i], "row %d", i)
	}
}

func TestImportReplicatesEdges(t *testing.T) {
	p := newTestPicture(20, 18, func(x, y int) (uint8, uint8, uint8) {
		return uint8(x + 10*y), uint8(x), uint8(y)
	})
	_, it := newTestIterator(t, p)
	it.SetRow(1)
	it.SetPosition(1)
	it.Import()
	// Luma block (16,16) holds columns 16..19 and rows 16..17.
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			sx, sy := min(16+x, 19), min(16+y, 17)
			require.Equal(t, p.y[sx+sy*20], it.yuvIn[dsp.YOff+x+y*dsp.BPS], "(%d,%d)", x, y)
		}
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sx, sy := min(8+x, 9), min(8+y, 8)
			require.Equal(t, p.u[sx+sy*10], it.yuvIn[dsp.UOff+x+y*dsp.BPS])
			require.Equal(t, p.v[sx+sy*10], it.yuvIn[dsp.VOff+x+y*dsp.BPS])
		}
	}
}

func TestModeCostsI4UsesNeighbours(t *testing.T) {
	enc, it := newTestIterator(t, flatPicture(32, 32, 128))
	it.SetRow(1)
	it.SetPosition(1)
	// Left neighbour column and top neighbour row.
	for j := 0; j < 4; j++ {
		enc.preds[it.predIndex(-1, j)] = BHUPred
	}
	for i := 0; i < 4; i++ {
		enc.preds[it.predIndex(i, -1)] = BVEPred
	}
	var modes [16]uint8
	modes[0] = BTMPred
	it.i4 = 0
	require.Equal(t, &FixedCostsI4[BVEPred][BHUPred], it.modeCostsI4(&modes))
	it.i4 = 1
	require.Equal(t, &FixedCostsI4[BVEPred][BTMPred], it.modeCostsI4(&modes))
	it.i4 = 4
	require.Equal(t, &FixedCostsI4[BTMPred][BHUPred], it.modeCostsI4(&modes))
}

func TestSetIntra16ModeFillsModeMap(t *testing.T) {
	enc, it := newTestIterator(t, flatPicture(32, 32, 128))
	it.SetRow(1)
	it.SetPosition(0)
	it.SetIntra16Mode(HEPred)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			require.Equal(t, uint8(HEPred), enc.preds[it.predIndex(i, j)])
		}
	}
	require.Equal(t, uint8(MBTypeI16), it.mb.Type)
	require.Equal(t, HEPred, it.i16Mode())
}
