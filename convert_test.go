package vp8rdo

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepteams/vp8rdo/internal/dsp"
)

func TestImportRGBSolid(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
	}{
		{"black", color.NRGBA{0, 0, 0, 255}},
		{"white", color.NRGBA{255, 255, 255, 255}},
		{"red", color.NRGBA{255, 0, 0, 255}},
		{"teal", color.NRGBA{0, 128, 128, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 5, 3))
			for y := 0; y < 3; y++ {
				for x := 0; x < 5; x++ {
					img.SetNRGBA(x, y, tt.c)
				}
			}
			p := importRGB(img)
			defer p.release()

			r, g, b := int(tt.c.R), int(tt.c.G), int(tt.c.B)
			wantY := dsp.RGBToY(r, g, b)
			wantU := dsp.RGBToU(4*r, 4*g, 4*b)
			wantV := dsp.RGBToV(4*r, 4*g, 4*b)
			for i := 0; i < 15; i++ {
				require.Equal(t, wantY, p.y[i])
			}
			// Odd dimensions replicate the last row and column.
			for i := 0; i < 3*2; i++ {
				require.Equal(t, wantU, p.u[i])
				require.Equal(t, wantV, p.v[i])
			}
		})
	}
}

func TestImportRGBLimitedRange(t *testing.T) {
	p := importRGB(image.NewGray(image.Rect(0, 0, 2, 2)))
	defer p.release()
	require.Equal(t, uint8(16), p.y[0])
	require.Equal(t, uint8(128), p.u[0])
	require.Equal(t, uint8(128), p.v[0])
}

func TestImportRGBAveragesChroma(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 255, 0, 255})
	img.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})
	img.SetRGBA(1, 1, color.RGBA{255, 255, 255, 255})
	p := importRGB(img)
	defer p.release()

	require.Equal(t, dsp.RGBToU(510, 510, 510), p.u[0])
	require.Equal(t, dsp.RGBToV(510, 510, 510), p.v[0])
	require.Equal(t, dsp.RGBToY(0, 255, 0), p.y[1])
}

func TestFetchRowPaths(t *testing.T) {
	// The typed fast paths and the generic path must agree.
	nrgba := texturedNRGBA(9, 4, 11)
	rgba := image.NewRGBA(nrgba.Rect)
	for y := 0; y < 4; y++ {
		for x := 0; x < 9; x++ {
			rgba.Set(x, y, nrgba.At(x, y))
		}
	}
	generic := image.NewNRGBA64(nrgba.Rect)
	for y := 0; y < 4; y++ {
		for x := 0; x < 9; x++ {
			generic.Set(x, y, nrgba.At(x, y))
		}
	}

	want := make([]byte, 27)
	got := make([]byte, 27)
	for y := 0; y < 4; y++ {
		fetchRow(nrgba, y, want)
		fetchRow(rgba, y, got)
		require.Equal(t, want, got, "rgba row %d", y)
		fetchRow(generic, y, got)
		require.Equal(t, want, got, "generic row %d", y)
	}
}

func TestFetchRowSubImage(t *testing.T) {
	img := texturedNRGBA(16, 16, 12)
	sub := img.SubImage(image.Rect(3, 5, 11, 9))
	row := make([]byte, 3*8)
	fetchRow(sub, 1, row)
	c := img.NRGBAAt(3, 6)
	require.Equal(t, []byte{c.R, c.G, c.B}, row[:3])
	c = img.NRGBAAt(10, 6)
	require.Equal(t, []byte{c.R, c.G, c.B}, row[21:24])
}

func TestImportYCbCrDoesNotPool(t *testing.T) {
	img := flatYCbCr(16, 16, 77)
	p := importYCbCr(img)
	p.release()
	require.NotNil(t, p.y)
	require.Equal(t, uint8(77), img.Y[0])
}
