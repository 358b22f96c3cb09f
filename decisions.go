package vp8rdo

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Decision streams start with an uncompressed magic and version; the
// rest is a zstd stream of little-endian records: a header, one record per
// segment, then one record per macroblock in raster order.
const (
	decisionsMagic   = "VP8RDO"
	decisionsVersion = 1
)

// ErrBadDecisions is returned by ReadDecisions for malformed input.
var ErrBadDecisions = errors.New("vp8rdo: malformed decision stream")

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

type decisionsHeader struct {
	Width, Height   uint16
	NumSegments     uint8
	FilterSimple    uint8
	FilterLevel     uint8
	FilterSharpness uint8
	SkipProba       uint8
	UpdateMap       uint8
	SegmentProbas   [3]uint8
	Passes          uint8
}

type segmentRecord struct {
	Quant, Beta, FilterStrength uint8
	Alpha                       int8
	Y1DC, Y1AC                  uint16
	Y2DC, Y2AC                  uint16
	UVDC, UVAC                  uint16
	LambdaI16, LambdaI4         int32
	LambdaUV, LambdaMode        int32
	Macroblocks                 uint32
}

type mbRecord struct {
	Type, Mode16 uint8
	Modes        [16]uint8
	UVMode       uint8
	Segment      uint8
	Alpha        uint8
	Skip         uint8
	NonZero      uint32
	YDC          [16]int16
	YAC          [16][16]int16
	UV           [8][16]int16
	Distortion   int64
	SpectralDist int64
	HeaderBits   int64
	ResidualBits int64
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// WriteDecisions serializes the macroblock decisions, segments and filter
// parameters of r to w.
func (r *Result) WriteDecisions(w io.Writer) error {
	if _, err := io.WriteString(w, decisionsMagic); err != nil {
		return errors.Wrap(err, "vp8rdo: write magic")
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(decisionsVersion)); err != nil {
		return errors.Wrap(err, "vp8rdo: write version")
	}

	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	enc.Reset(w)
	if err := r.writeRecords(enc); err != nil {
		_ = enc.Close()
		return err
	}
	return errors.Wrap(enc.Close(), "vp8rdo: flush decisions")
}

func (r *Result) writeRecords(w io.Writer) error {
	hdr := decisionsHeader{
		Width:           uint16(r.Width),
		Height:          uint16(r.Height),
		NumSegments:     uint8(len(r.Segments)),
		FilterSimple:    b2u8(r.Filter.Simple),
		FilterLevel:     uint8(r.Filter.Level),
		FilterSharpness: uint8(r.Filter.Sharpness),
		SkipProba:       r.Stats.SkipProba,
		UpdateMap:       b2u8(r.Stats.UpdateMap),
		SegmentProbas:   r.Stats.SegmentProbas,
		Passes:          uint8(r.Stats.Passes),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "vp8rdo: write header")
	}
	for i := range r.Segments {
		s := &r.Segments[i]
		rec := segmentRecord{
			Quant:          uint8(s.Quant),
			Beta:           uint8(s.Beta),
			FilterStrength: uint8(s.FilterStrength),
			Alpha:          int8(s.Alpha),
			Y1DC:           uint16(s.Y1DC),
			Y1AC:           uint16(s.Y1AC),
			Y2DC:           uint16(s.Y2DC),
			Y2AC:           uint16(s.Y2AC),
			UVDC:           uint16(s.UVDC),
			UVAC:           uint16(s.UVAC),
			LambdaI16:      int32(s.LambdaI16),
			LambdaI4:       int32(s.LambdaI4),
			LambdaUV:       int32(s.LambdaUV),
			LambdaMode:     int32(s.LambdaMode),
			Macroblocks:    uint32(s.Macroblocks),
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return errors.Wrapf(err, "vp8rdo: write segment %d", i)
		}
	}
	var rec mbRecord
	for i := range r.Macroblocks {
		mb := &r.Macroblocks[i]
		rec = mbRecord{
			Type:         uint8(mb.Type),
			Mode16:       mb.Mode16,
			Modes:        mb.Modes,
			UVMode:       mb.UVMode,
			Segment:      mb.Segment,
			Alpha:        uint8(mb.Alpha),
			Skip:         b2u8(mb.Skip),
			NonZero:      mb.NonZero,
			YDC:          mb.YDC,
			YAC:          mb.YAC,
			UV:           mb.UV,
			Distortion:   mb.Distortion,
			SpectralDist: mb.SpectralDistortion,
			HeaderBits:   mb.HeaderBits,
			ResidualBits: mb.ResidualBits,
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return errors.Wrapf(err, "vp8rdo: write macroblock %d", i)
		}
	}
	return nil
}

// ReadDecisions parses a stream written by WriteDecisions. The returned
// Result has no reconstruction; its Stats carry the mode counts and the
// header and residual bits recomputed from the macroblocks.
func ReadDecisions(rd io.Reader) (*Result, error) {
	var magic [len(decisionsMagic)]byte
	if _, err := io.ReadFull(rd, magic[:]); err != nil {
		return nil, errors.Wrap(err, "vp8rdo: read magic")
	}
	if string(magic[:]) != decisionsMagic {
		return nil, errors.Wrapf(ErrBadDecisions, "bad magic %q", magic[:])
	}
	var version uint16
	if err := binary.Read(rd, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(err, "vp8rdo: read version")
	}
	if version != decisionsVersion {
		return nil, errors.Wrapf(ErrBadDecisions, "unsupported version %d", version)
	}

	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	if err := dec.Reset(rd); err != nil {
		return nil, errors.Wrap(err, "vp8rdo: open decisions")
	}
	return readRecords(dec)
}

func readRecords(rd io.Reader) (*Result, error) {
	var hdr decisionsHeader
	if err := binary.Read(rd, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "vp8rdo: read header")
	}
	w, h := int(hdr.Width), int(hdr.Height)
	if w == 0 || h == 0 || w > MaxDimension || h > MaxDimension {
		return nil, errors.Wrapf(ErrBadDecisions, "dimensions %dx%d", w, h)
	}
	if hdr.NumSegments < 1 || hdr.NumSegments > 4 {
		return nil, errors.Wrapf(ErrBadDecisions, "%d segments", hdr.NumSegments)
	}

	r := &Result{
		Width:    w,
		Height:   h,
		MBWidth:  (w + 15) >> 4,
		MBHeight: (h + 15) >> 4,
		Filter: Filter{
			Simple:    hdr.FilterSimple != 0,
			Level:     int(hdr.FilterLevel),
			Sharpness: int(hdr.FilterSharpness),
		},
	}
	r.Stats.SkipProba = hdr.SkipProba
	r.Stats.UpdateMap = hdr.UpdateMap != 0
	r.Stats.SegmentProbas = hdr.SegmentProbas
	r.Stats.Passes = int(hdr.Passes)

	r.Segments = make([]Segment, hdr.NumSegments)
	for i := range r.Segments {
		var rec segmentRecord
		if err := binary.Read(rd, binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrapf(err, "vp8rdo: read segment %d", i)
		}
		r.Segments[i] = Segment{
			Quant:          int(rec.Quant),
			Alpha:          int(rec.Alpha),
			Beta:           int(rec.Beta),
			FilterStrength: int(rec.FilterStrength),
			Y1DC:           int(rec.Y1DC),
			Y1AC:           int(rec.Y1AC),
			Y2DC:           int(rec.Y2DC),
			Y2AC:           int(rec.Y2AC),
			UVDC:           int(rec.UVDC),
			UVAC:           int(rec.UVAC),
			LambdaI16:      int(rec.LambdaI16),
			LambdaI4:       int(rec.LambdaI4),
			LambdaUV:       int(rec.LambdaUV),
			LambdaMode:     int(rec.LambdaMode),
			Macroblocks:    int(rec.Macroblocks),
		}
	}

	r.Macroblocks = make([]Macroblock, r.MBWidth*r.MBHeight)
	var header, residual int64
	for i := range r.Macroblocks {
		var rec mbRecord
		if err := binary.Read(rd, binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrapf(err, "vp8rdo: read macroblock %d", i)
		}
		if err := checkRecord(&rec, int(hdr.NumSegments)); err != nil {
			return nil, errors.Wrapf(err, "macroblock %d", i)
		}
		mb := Macroblock{
			X:                  i % r.MBWidth,
			Y:                  i / r.MBWidth,
			Type:               MBType(rec.Type),
			Mode16:             rec.Mode16,
			Modes:              rec.Modes,
			UVMode:             rec.UVMode,
			Segment:            rec.Segment,
			Alpha:              int(rec.Alpha),
			Skip:               rec.Skip != 0,
			NonZero:            rec.NonZero,
			YDC:                rec.YDC,
			YAC:                rec.YAC,
			UV:                 rec.UV,
			Distortion:         rec.Distortion,
			SpectralDistortion: rec.SpectralDist,
			HeaderBits:         rec.HeaderBits,
			ResidualBits:       rec.ResidualBits,
		}
		r.Macroblocks[i] = mb
		r.Stats.count(&mb)
		header += mb.HeaderBits
		residual += mb.ResidualBits
	}
	r.Stats.HeaderBits = float64(header) / 256
	r.Stats.ResidualBits = float64(residual) / 256
	return r, nil
}

func checkRecord(rec *mbRecord, numSegments int) error {
	if rec.Type > uint8(MBTypeI16) {
		return errors.Wrapf(ErrBadDecisions, "type %d", rec.Type)
	}
	if rec.Mode16 > 3 || rec.UVMode > 3 {
		return errors.Wrapf(ErrBadDecisions, "modes %d/%d", rec.Mode16, rec.UVMode)
	}
	for _, m := range rec.Modes {
		if m > 9 {
			return errors.Wrapf(ErrBadDecisions, "4x4 mode %d", m)
		}
	}
	if int(rec.Segment) >= numSegments {
		return errors.Wrapf(ErrBadDecisions, "segment %d", rec.Segment)
	}
	return nil
}

// count adds the mode choices of mb to the histograms.
func (s *Stats) count(mb *Macroblock) {
	if mb.Skip {
		s.Skipped++
	}
	if mb.Type == MBTypeI16 {
		s.I16++
		s.I16Modes[mb.Mode16]++
	} else {
		s.I4++
		for _, m := range mb.Modes {
			s.I4Modes[m]++
		}
	}
	s.UVModes[mb.UVMode]++
}
