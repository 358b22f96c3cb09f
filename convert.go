package vp8rdo

import (
	"image"
	"image/color"

	"github.com/deepteams/vp8rdo/internal/dsp"
	"github.com/deepteams/vp8rdo/internal/pool"
)

// planes holds a 4:2:0 picture in pooled buffers.
type planes struct {
	y, u, v          []byte
	yStride, uvStride int
	width, height    int
	pooled           bool
}

func (p *planes) release() {
	if !p.pooled {
		return
	}
	pool.Put(p.y)
	pool.Put(p.u)
	pool.Put(p.v)
	p.y, p.u, p.v = nil, nil, nil
}

// fetchRow copies row y of img as packed RGB into dst. Alpha is ignored.
func fetchRow(img image.Image, y int, dst []byte) {
	b := img.Bounds()
	w := b.Dx()
	switch src := img.(type) {
	case *image.NRGBA:
		off := (y+b.Min.Y-src.Rect.Min.Y)*src.Stride + (b.Min.X-src.Rect.Min.X)*4
		for x := 0; x < w; x++ {
			dst[3*x+0] = src.Pix[off]
			dst[3*x+1] = src.Pix[off+1]
			dst[3*x+2] = src.Pix[off+2]
			off += 4
		}
	case *image.RGBA:
		off := (y+b.Min.Y-src.Rect.Min.Y)*src.Stride + (b.Min.X-src.Rect.Min.X)*4
		for x := 0; x < w; x++ {
			dst[3*x+0] = src.Pix[off]
			dst[3*x+1] = src.Pix[off+1]
			dst[3*x+2] = src.Pix[off+2]
			off += 4
		}
	case *image.Gray:
		off := (y+b.Min.Y-src.Rect.Min.Y)*src.Stride + (b.Min.X - src.Rect.Min.X)
		for x := 0; x < w; x++ {
			g := src.Pix[off+x]
			dst[3*x+0], dst[3*x+1], dst[3*x+2] = g, g, g
		}
	default:
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst[3*x+0] = c.R
			dst[3*x+1] = c.G
			dst[3*x+2] = c.B
		}
	}
}

// importRGB converts img to 4:2:0 YUV. Each chroma sample is derived from
// the sum of the 2x2 RGB block it covers, with the last row and column
// replicated when the dimensions are odd.
func importRGB(img image.Image) *planes {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	uvW, uvH := (w+1)>>1, (h+1)>>1
	p := &planes{
		y:        pool.Get(w * h),
		u:        pool.Get(uvW * uvH),
		v:        pool.Get(uvW * uvH),
		yStride:  w,
		uvStride: uvW,
		width:    w,
		height:   h,
		pooled:   true,
	}

	row0 := pool.Get(3 * w)
	row1 := pool.Get(3 * w)
	defer pool.Put(row0)
	defer pool.Put(row1)

	for j := 0; j < uvH; j++ {
		y0 := 2 * j
		y1 := y0 + 1
		if y1 >= h {
			y1 = y0
		}
		fetchRow(img, y0, row0)
		if y1 != y0 {
			fetchRow(img, y1, row1)
		} else {
			copy(row1, row0)
		}
		yRow0 := p.y[y0*w : y0*w+w]
		yRow1 := p.y[y1*w : y1*w+w]
		for x := 0; x < w; x++ {
			yRow0[x] = dsp.RGBToY(int(row0[3*x]), int(row0[3*x+1]), int(row0[3*x+2]))
			yRow1[x] = dsp.RGBToY(int(row1[3*x]), int(row1[3*x+1]), int(row1[3*x+2]))
		}
		for i := 0; i < uvW; i++ {
			x0 := 2 * i
			x1 := x0 + 1
			if x1 >= w {
				x1 = x0
			}
			r := int(row0[3*x0]) + int(row0[3*x1]) + int(row1[3*x0]) + int(row1[3*x1])
			g := int(row0[3*x0+1]) + int(row0[3*x1+1]) + int(row1[3*x0+1]) + int(row1[3*x1+1])
			bl := int(row0[3*x0+2]) + int(row0[3*x1+2]) + int(row1[3*x0+2]) + int(row1[3*x1+2])
			p.u[j*uvW+i] = dsp.RGBToU(r, g, bl)
			p.v[j*uvW+i] = dsp.RGBToV(r, g, bl)
		}
	}
	return p
}

// importYCbCr wraps the planes of a 4:2:0 picture without copying.
func importYCbCr(img *image.YCbCr) *planes {
	r := img.Rect
	yOff := img.YOffset(r.Min.X, r.Min.Y)
	cOff := img.COffset(r.Min.X, r.Min.Y)
	return &planes{
		y:        img.Y[yOff:],
		u:        img.Cb[cOff:],
		v:        img.Cr[cOff:],
		yStride:  img.YStride,
		uvStride: img.CStride,
		width:    r.Dx(),
		height:   r.Dy(),
	}
}
