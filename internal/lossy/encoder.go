package lossy

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// maxDimension is the largest picture side VP8 can describe.
const maxDimension = 16383

var (
	// ErrInvalidDimensions is returned for empty or oversized pictures.
	ErrInvalidDimensions = errors.New("lossy: invalid picture dimensions")
	// ErrShortPlane is returned when a plane is too small for its stride.
	ErrShortPlane = errors.New("lossy: plane too short")
	// ErrInvalidConfig is returned for out-of-range parameters.
	ErrInvalidConfig = errors.New("lossy: invalid config")
)

// Macroblock types.
const (
	MBTypeI4  = 0
	MBTypeI16 = 1
)

// MBInfo is the decision taken for one macroblock.
type MBInfo struct {
	Type    uint8 // MBTypeI4 or MBTypeI16
	Mode16  uint8
	Modes   [16]uint8 // 4x4 modes, raster order
	UVMode  uint8
	Segment uint8
	Alpha   int // complexity from the analysis, 0..255
	Skip    bool

	NZ        uint32
	YDCLevels [16]int16
	YACLevels [16][16]int16
	UVLevels  [8][16]int16

	D, SD, H, R int64 // final account
}

// Encoder runs the quantization and mode decision of one 4:2:0 picture.
type Encoder struct {
	cfg Config

	width, height int
	mbW, mbH      int

	srcY, srcU, srcV []byte
	srcYStride       int
	srcUVStride      int

	// Reconstruction, width and (width+1)/2 strides.
	outY, outU, outV []byte

	method          int
	rdOpt           RDLevel
	maxI4HeaderBits int

	dqm        [NumMBSegments]SegmentInfo
	segmentHdr SegmentHeader
	filterHdr  FilterHeader

	dqY1DC, dqY2DC, dqY2AC int
	dqUVDC, dqUVAC         int

	alpha, uvAlpha int // frame averages from the analysis
	baseQuant      int

	mbInfo []MBInfo

	// 4x4 mode map with a one-entry DC border on top and left.
	preds  []uint8
	predsW int

	proba *Proba

	// Context shared by the rows: bottom samples and nz word of the last
	// macroblock processed in each column.
	yTop  []uint8
	uvTop []uint8
	nz    []uint32

	stats FrameStats
}

// NewEncoder prepares an encoder for the given planes. The chroma planes
// are subsampled by two in both directions.
func NewEncoder(y, u, v []byte, yStride, uvStride, width, height int, cfg Config) (*Encoder, error) {
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	uvW, uvH := (width+1)>>1, (height+1)>>1
	if yStride < width || len(y) < (height-1)*yStride+width {
		return nil, errors.Wrap(ErrShortPlane, "luma")
	}
	if uvStride < uvW || len(u) < (uvH-1)*uvStride+uvW || len(v) < (uvH-1)*uvStride+uvW {
		return nil, errors.Wrap(ErrShortPlane, "chroma")
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	mbW, mbH := (width+15)>>4, (height+15)>>4
	e := &Encoder{
		cfg:             cfg,
		width:           width,
		height:          height,
		mbW:             mbW,
		mbH:             mbH,
		srcY:            y,
		srcU:            u,
		srcV:            v,
		srcYStride:      yStride,
		srcUVStride:     uvStride,
		outY:            make([]byte, width*height),
		outU:            make([]byte, uvW*uvH),
		outV:            make([]byte, uvW*uvH),
		method:          cfg.Method,
		rdOpt:           rdOptLevel(cfg.Method),
		maxI4HeaderBits: maxI4HeaderBits(cfg.PartitionLimit),
		mbInfo:          make([]MBInfo, mbW*mbH),
		predsW:          4*mbW + 1,
		proba:           NewProba(),
		yTop:            make([]uint8, mbW*16),
		uvTop:           make([]uint8, mbW*16),
		nz:              make([]uint32, mbW),
	}
	e.preds = make([]uint8, e.predsW*(4*mbH+1))
	e.segmentHdr.NumSegments = cfg.Segments
	e.filterHdr.Sharpness = cfg.FilterSharpness
	for i := range e.mbInfo {
		e.mbInfo[i].Type = MBTypeI16
	}
	return e, nil
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg.Quality < 0 || cfg.Quality > 100:
		return errors.Wrapf(ErrInvalidConfig, "quality %v", cfg.Quality)
	case cfg.Method < 0 || cfg.Method > 6:
		return errors.Wrapf(ErrInvalidConfig, "method %d", cfg.Method)
	case cfg.SNSStrength < 0 || cfg.SNSStrength > 100:
		return errors.Wrapf(ErrInvalidConfig, "sns strength %d", cfg.SNSStrength)
	case cfg.FilterStrength < 0 || cfg.FilterStrength > 100:
		return errors.Wrapf(ErrInvalidConfig, "filter strength %d", cfg.FilterStrength)
	case cfg.FilterSharpness < 0 || cfg.FilterSharpness > 7:
		return errors.Wrapf(ErrInvalidConfig, "filter sharpness %d", cfg.FilterSharpness)
	case cfg.FilterType < 0 || cfg.FilterType > 1:
		return errors.Wrapf(ErrInvalidConfig, "filter type %d", cfg.FilterType)
	case cfg.Segments < 1 || cfg.Segments > NumMBSegments:
		return errors.Wrapf(ErrInvalidConfig, "segments %d", cfg.Segments)
	case cfg.Pass < 1 || cfg.Pass > 10:
		return errors.Wrapf(ErrInvalidConfig, "pass %d", cfg.Pass)
	case cfg.PartitionLimit < 0 || cfg.PartitionLimit > 100:
		return errors.Wrapf(ErrInvalidConfig, "partition limit %d", cfg.PartitionLimit)
	case cfg.Threads < 0:
		return errors.Wrapf(ErrInvalidConfig, "threads %d", cfg.Threads)
	}
	return nil
}

// Encode runs the analysis, the statistics passes and the final decision
// pass. After it returns the decisions, reconstruction and statistics are
// available through the accessors. An Encoder encodes once.
func (e *Encoder) Encode(ctx context.Context) error {
	if err := e.analyze(ctx); err != nil {
		return err
	}
	e.SetSegmentParams(float64(e.cfg.Quality))

	// Statistics passes refine the probabilities the rate estimates use.
	statRD := RDNone
	if e.method >= 3 {
		statRD = RDBasic
	}
	for pass := 0; pass < e.cfg.Pass; pass++ {
		res, err := e.encodeRows(ctx, statRD, false)
		if err != nil {
			return errors.Wrapf(err, "statistics pass %d", pass)
		}
		e.stats.Passes++
		e.mergeMaxEdge(res)
		e.proba.FinalizeSkipProba(&res.tokens)
		size, changed := e.proba.FinalizeTokenProbas(&res.tokens)
		e.stats.ProbaSize = size
		e.proba.CalculateLevelCosts()
		if !changed {
			break
		}
	}

	res, err := e.encodeRows(ctx, e.rdOpt, true)
	if err != nil {
		return errors.Wrap(err, "final pass")
	}
	e.stats.Passes++
	e.mergeMaxEdge(res)
	e.AdjustFilterStrength()
	e.setSegmentProbas()
	e.finishStats(res)
	return nil
}

// mergeMaxEdge folds the DC steps seen during a pass into the segments.
// Steps accumulate over every pass, statistics passes included.
func (e *Encoder) mergeMaxEdge(res *passResult) {
	for s := range e.dqm {
		e.dqm[s].MaxEdge = max(e.dqm[s].MaxEdge, res.maxEdge[s])
	}
}

// passResult gathers the per-row accounts of one pass, merged in row
// order.
type passResult struct {
	tokens  TokenStats
	maxEdge [NumMBSegments]int
	totals  frameTotals
}

// encodeRows runs one pass over the picture. Rows run concurrently in a
// wavefront: macroblock x of row y starts once row y-1 has finished
// macroblock x+1, which is the last one its predictions read.
func (e *Encoder) encodeRows(ctx context.Context, rdOpt RDLevel, final bool) (*passResult, error) {
	for i := range e.yTop {
		e.yTop[i] = 127
		e.uvTop[i] = 127
	}
	for i := range e.nz {
		e.nz[i] = 0
	}

	rs := newRowSync(e.mbH)
	rows := make([]*Iterator, e.mbH)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.threads())
	for y := 0; y < e.mbH; y++ {
		it := newIterator(e)
		rows[y] = it
		g.Go(func() error {
			defer rs.release(y)
			it.SetRow(y)
			for x := 0; x < e.mbW; x++ {
				if y > 0 {
					rs.waitFor(y-1, int32(min(x+2, e.mbW)))
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				it.SetPosition(x)
				it.encodeMB(rdOpt, final)
				rs.signal(y, int32(x+1))
			}
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for _, it := range rows {
			it.release()
		}
	}()
	if err != nil {
		return nil, err
	}

	res := &passResult{}
	for _, it := range rows {
		res.tokens.Merge(it.stats)
		for s := range res.maxEdge {
			res.maxEdge[s] = max(res.maxEdge[s], it.maxEdge[s])
		}
		res.totals.merge(&it.totals)
	}
	return res, nil
}

// encodeMB decides and records the current macroblock.
func (it *Iterator) encodeMB(rdOpt RDLevel, final bool) {
	var rd ModeScore
	it.Import()
	skip := it.Decimate(&rd, rdOpt)
	if skip {
		it.stats.NbSkip++
	}
	it.stats.NbMB++
	if final && skip && it.enc.proba.UseSkipProba {
		it.resetAfterSkip()
	} else {
		it.recordResiduals(&rd)
	}
	if final {
		it.commit(&rd)
		it.Export()
	}
	it.SaveBoundary()
}

// commit stores the levels and account of the decision in the macroblock
// info.
func (it *Iterator) commit(rd *ModeScore) {
	mb := it.mb
	mb.NZ = rd.NZ
	mb.YDCLevels = rd.YDCLevels
	mb.YACLevels = rd.YACLevels
	mb.UVLevels = rd.UVLevels
	if mb.Type != MBTypeI16 {
		mb.YDCLevels = [16]int16{}
	}
	mb.D, mb.SD, mb.H, mb.R = rd.D, rd.SD, rd.H, rd.R
	it.totals.add(mb)
}

// Width returns the picture width.
func (e *Encoder) Width() int { return e.width }

// Height returns the picture height.
func (e *Encoder) Height() int { return e.height }

// MBWidth returns the width in macroblocks.
func (e *Encoder) MBWidth() int { return e.mbW }

// MBHeight returns the height in macroblocks.
func (e *Encoder) MBHeight() int { return e.mbH }

// MBInfo returns the decisions, in raster order. The slice is owned by the
// encoder.
func (e *Encoder) MBInfo() []MBInfo { return e.mbInfo }

// Segments returns the active segments.
func (e *Encoder) Segments() []SegmentInfo { return e.dqm[:e.segmentHdr.NumSegments] }

// SegmentHeader returns the segmentation of the frame.
func (e *Encoder) SegmentHeader() SegmentHeader { return e.segmentHdr }

// FilterHeader returns the loop filter parameters.
func (e *Encoder) FilterHeader() FilterHeader { return e.filterHdr }

// Proba returns the final probability model.
func (e *Encoder) Proba() *Proba { return e.proba }

// RDLevel returns the RD level of the final pass.
func (e *Encoder) RDLevel() RDLevel { return e.rdOpt }

// Reconstruction returns the reconstructed planes. The chroma stride is
// (width+1)/2.
func (e *Encoder) Reconstruction() (y, u, v []byte) { return e.outY, e.outU, e.outV }

// Stats returns the statistics of the last Encode.
func (e *Encoder) Stats() FrameStats { return e.stats }
