package vp8rdo

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/deepteams/vp8rdo/internal/lossy"
)

// MBType is the prediction type of a macroblock.
type MBType uint8

const (
	// MBTypeI4 predicts the luma in sixteen 4x4 sub-blocks.
	MBTypeI4 MBType = lossy.MBTypeI4
	// MBTypeI16 predicts the whole 16x16 luma block at once.
	MBTypeI16 MBType = lossy.MBTypeI16
)

func (t MBType) String() string {
	if t == MBTypeI4 {
		return "i4"
	}
	return "i16"
}

// Macroblock is the decision taken for one 16x16 macroblock.
type Macroblock struct {
	X, Y int // position, in macroblocks

	Type    MBType
	Mode16  uint8     // 16x16 luma mode, valid for MBTypeI16
	Modes   [16]uint8 // 4x4 luma modes in raster order, valid for MBTypeI4
	UVMode  uint8
	Segment uint8
	Alpha   int // complexity measured by the analysis, 0..255
	Skip    bool

	// NonZero has bit n set when sub-block n carries a coefficient: bits
	// 0-15 luma, 16-23 chroma, 24 the Y2 block.
	NonZero uint32

	// Quantized levels in zigzag order.
	YDC [16]int16     // Y2 block, MBTypeI16 only
	YAC [16][16]int16 // luma sub-blocks
	UV  [8][16]int16  // 4 U then 4 V sub-blocks

	// Account of the decision. Rates are in 1/256 bit.
	Distortion         int64
	SpectralDistortion int64
	HeaderBits         int64
	ResidualBits       int64
}

// Segment describes the quantization of one segment.
type Segment struct {
	Quant          int // quantizer index, 0..127
	Alpha          int // susceptibility to quantization, -127..127
	Beta           int // filter susceptibility, 0..255
	FilterStrength int // 0..63

	// Quantizer steps of the DC and AC coefficients of each class.
	Y1DC, Y1AC int
	Y2DC, Y2AC int
	UVDC, UVAC int

	LambdaI16, LambdaI4, LambdaUV, LambdaMode int

	Macroblocks int // number of macroblocks assigned to the segment
}

// Filter describes the loop filter the decoder would apply.
type Filter struct {
	Simple    bool
	Level     int
	Sharpness int
}

// Stats summarizes the decisions of the whole picture.
type Stats struct {
	PSNR [4]float64 // Y, U, V and all planes
	SSE  [3]uint64  // Y, U, V

	I4, I16, Skipped int // macroblock counts

	I16Modes [4]int  // DC, TM, VE, HE
	I4Modes  [10]int // over all 4x4 sub-blocks
	UVModes  [4]int

	// Estimated sizes in bits.
	HeaderBits     float64
	ResidualBits   float64
	ProbaBits      float64
	SegmentMapBits float64

	SkipProba     uint8 // 255 when skip flags are not coded
	SegmentProbas [3]uint8
	UpdateMap     bool

	RDLevel string
	Passes  int
}

// TotalBits returns the estimated size of the compressed frame payload.
func (s *Stats) TotalBits() float64 {
	return s.HeaderBits + s.ResidualBits + s.ProbaBits + s.SegmentMapBits
}

// Result holds the decisions and the reconstruction of one picture.
type Result struct {
	Width, Height     int
	MBWidth, MBHeight int

	Macroblocks []Macroblock // raster order
	Segments    []Segment
	Filter      Filter
	Stats       Stats

	// Reconstruction is the picture a decoder would produce before loop
	// filtering.
	Reconstruction *image.YCbCr
}

// Macroblock returns the decision at macroblock position (x, y).
func (r *Result) Macroblock(x, y int) *Macroblock {
	return &r.Macroblocks[y*r.MBWidth+x]
}

// Analyze quantizes img and decides the prediction mode of every
// macroblock. If opts is nil, DefaultOptions() is used.
func Analyze(img image.Image, opts *Options) (*Result, error) {
	return AnalyzeContext(context.Background(), img, opts)
}

// AnalyzeContext is like Analyze but stops early when ctx is cancelled.
// A 4:2:0 *image.YCbCr input is used without colour conversion.
func AnalyzeContext(ctx context.Context, img image.Image, opts *Options) (*Result, error) {
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		return AnalyzeYCbCr(ctx, ycc, opts)
	}
	if err := checkImage(img.Bounds()); err != nil {
		return nil, err
	}
	p := importRGB(img)
	defer p.release()
	return analyzePlanes(ctx, p, opts)
}

// AnalyzeYCbCr runs on the planes of a 4:2:0 picture.
func AnalyzeYCbCr(ctx context.Context, img *image.YCbCr, opts *Options) (*Result, error) {
	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return nil, errors.Wrapf(ErrInvalidImage, "subsample ratio %v", img.SubsampleRatio)
	}
	if err := checkImage(img.Rect); err != nil {
		return nil, err
	}
	return analyzePlanes(ctx, importYCbCr(img), opts)
}

func checkImage(r image.Rectangle) error {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return errors.Wrapf(ErrInvalidImage, "empty %dx%d", w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return errors.Wrapf(ErrInvalidImage, "dimension %dx%d exceeds maximum %d", w, h, MaxDimension)
	}
	return nil
}

func analyzePlanes(ctx context.Context, p *planes, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	enc, err := lossy.NewEncoder(p.y, p.u, p.v, p.yStride, p.uvStride, p.width, p.height, opts.config())
	if err != nil {
		return nil, errors.Wrap(err, "vp8rdo: new encoder")
	}
	if err := enc.Encode(ctx); err != nil {
		return nil, errors.Wrap(err, "vp8rdo: encode")
	}
	return newResult(enc), nil
}

func newResult(enc *lossy.Encoder) *Result {
	r := &Result{
		Width:    enc.Width(),
		Height:   enc.Height(),
		MBWidth:  enc.MBWidth(),
		MBHeight: enc.MBHeight(),
	}

	infos := enc.MBInfo()
	r.Macroblocks = make([]Macroblock, len(infos))
	for i := range infos {
		mb := &infos[i]
		r.Macroblocks[i] = Macroblock{
			X:                  i % r.MBWidth,
			Y:                  i / r.MBWidth,
			Type:               MBType(mb.Type),
			Mode16:             mb.Mode16,
			Modes:              mb.Modes,
			UVMode:             mb.UVMode,
			Segment:            mb.Segment,
			Alpha:              mb.Alpha,
			Skip:               mb.Skip,
			NonZero:            mb.NZ,
			YDC:                mb.YDCLevels,
			YAC:                mb.YACLevels,
			UV:                 mb.UVLevels,
			Distortion:         mb.D,
			SpectralDistortion: mb.SD,
			HeaderBits:         mb.H,
			ResidualBits:       mb.R,
		}
	}

	st := enc.Stats()
	for _, info := range enc.Segments() {
		r.Segments = append(r.Segments, Segment{
			Quant:          info.Quant,
			Alpha:          info.Alpha,
			Beta:           info.Beta,
			FilterStrength: info.FStrength,
			Y1DC:           info.Y1.Q[0],
			Y1AC:           info.Y1.Q[1],
			Y2DC:           info.Y2.Q[0],
			Y2AC:           info.Y2.Q[1],
			UVDC:           info.UV.Q[0],
			UVAC:           info.UV.Q[1],
			LambdaI16:      info.LambdaI16,
			LambdaI4:       info.LambdaI4,
			LambdaUV:       info.LambdaUV,
			LambdaMode:     info.LambdaMode,
			Macroblocks:    st.SegmentCounts[len(r.Segments)],
		})
	}

	fh := enc.FilterHeader()
	r.Filter = Filter{Simple: fh.Simple, Level: fh.Level, Sharpness: fh.Sharpness}

	sh := enc.SegmentHeader()
	proba := enc.Proba()
	r.Stats = Stats{
		PSNR:           st.PSNR,
		SSE:            st.SSE,
		I4:             st.NbI4,
		I16:            st.NbI16,
		Skipped:        st.NbSkip,
		I16Modes:       st.I16Modes,
		I4Modes:        st.I4Modes,
		UVModes:        st.UVModes,
		HeaderBits:     float64(st.HeaderBits) / 256,
		ResidualBits:   float64(st.ResidualBits) / 256,
		ProbaBits:      float64(st.ProbaSize) / 256,
		SegmentMapBits: float64(st.SegmentMapSize) / 256,
		SkipProba:      255,
		SegmentProbas:  sh.Probas,
		UpdateMap:      sh.UpdateMap,
		RDLevel:        enc.RDLevel().String(),
		Passes:         st.Passes,
	}
	if proba.UseSkipProba {
		r.Stats.SkipProba = proba.SkipProba
	}

	y, u, v := enc.Reconstruction()
	r.Reconstruction = &image.YCbCr{
		Y:              y,
		Cb:             u,
		Cr:             v,
		YStride:        r.Width,
		CStride:        (r.Width + 1) >> 1,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, r.Width, r.Height),
	}
	return r
}

// ModeName returns the short name of a 16x16 luma or chroma mode.
func ModeName(mode uint8) string { return lossy.ModeName(mode) }

// SubModeName returns the short name of a 4x4 luma mode.
func SubModeName(mode uint8) string { return lossy.BModeName(mode) }
