package codec

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/brimdata/thetasketch/accum"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"
)

// A column object stores a sequence of values:
//
//	[header][offsets: (count+1) × uint32][data]
//
// The data section is the concatenated values, LZ4 block compressed when
// that makes it smaller.  Slot i occupies data[offsets[i]:offsets[i+1]] after
// decompression.  A zero-length slot is a null; every non-null value is at
// least accum.PreambleSize bytes long.
const (
	ColumnVersion    = 1
	ColumnHeaderSize = 32
	MaxColumnCount   = 1 << 28
	MaxColumnData    = 2 * 1024 * 1024 * 1024
)

const (
	CompressionFormatNone uint8 = 0
	CompressionFormatLZ4  uint8 = 1
)

type ColumnHeader struct {
	Version           uint32
	Count             uint32
	CompressionFormat uint8
	// DataSize is the length of the decompressed data section.
	DataSize uint64
	// StoredSize is the length of the data section in the object.
	StoredSize uint64
}

func (h ColumnHeader) Serialize() []byte {
	var bytes [ColumnHeaderSize]byte
	bytes[0] = 'T'
	bytes[1] = 'S'
	bytes[2] = 'K'
	binary.LittleEndian.PutUint32(bytes[4:], h.Version)
	binary.LittleEndian.PutUint32(bytes[8:], h.Count)
	bytes[12] = h.CompressionFormat
	binary.LittleEndian.PutUint64(bytes[16:], h.DataSize)
	binary.LittleEndian.PutUint64(bytes[24:], h.StoredSize)
	return bytes[:]
}

func (h *ColumnHeader) Deserialize(bytes []byte) error {
	if len(bytes) != ColumnHeaderSize || !IsColumn(bytes) {
		return errors.New("invalid theta sketch column header")
	}
	h.Version = binary.LittleEndian.Uint32(bytes[4:])
	h.Count = binary.LittleEndian.Uint32(bytes[8:])
	h.CompressionFormat = bytes[12]
	h.DataSize = binary.LittleEndian.Uint64(bytes[16:])
	h.StoredSize = binary.LittleEndian.Uint64(bytes[24:])
	if h.Version != ColumnVersion {
		return fmt.Errorf("%w: column version %d, expected version %d", accum.ErrUnrecognizedVersion, h.Version, ColumnVersion)
	}
	if h.Count > MaxColumnCount {
		return fmt.Errorf("theta sketch column too long: %d values", h.Count)
	}
	if h.DataSize > MaxColumnData {
		return fmt.Errorf("theta sketch column data section too big: %d bytes", h.DataSize)
	}
	switch h.CompressionFormat {
	case CompressionFormatNone:
		if h.StoredSize != h.DataSize {
			return fmt.Errorf("%w: uncompressed column stores %d of %d bytes", accum.ErrMalformed, h.StoredSize, h.DataSize)
		}
	case CompressionFormatLZ4:
		if h.StoredSize > uint64(lz4.CompressBlockBound(int(h.DataSize))) {
			return fmt.Errorf("%w: compressed column data section too big", accum.ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: unknown column compression format %d", accum.ErrMalformed, h.CompressionFormat)
	}
	return nil
}

// IsColumn reports whether b begins like a column object.
func IsColumn(b []byte) bool {
	return len(b) >= 4 && b[0] == 'T' && b[1] == 'S' && b[2] == 'K' && b[3] == 0
}

// ObjectSize returns the total length of the column object.
func (h *ColumnHeader) ObjectSize() uint64 {
	return ColumnHeaderSize + 4*(uint64(h.Count)+1) + h.StoredSize
}

func ReadColumnHeader(r io.ReaderAt) (ColumnHeader, error) {
	var bytes [ColumnHeaderSize]byte
	cc, err := r.ReadAt(bytes[:], 0)
	if cc < ColumnHeaderSize {
		if err == nil || err == io.EOF {
			err = fmt.Errorf("short theta sketch column: %d bytes read", cc)
		}
		return ColumnHeader{}, err
	}
	var h ColumnHeader
	if err := h.Deserialize(bytes[:]); err != nil {
		return ColumnHeader{}, err
	}
	return h, nil
}

// ColumnWriter collects accumulators and writes them as a column object.
type ColumnWriter struct {
	codec *Codec
	accs  []*accum.Accumulator

	// These fields are derived by Encode.
	values  [][]byte
	offsets []byte
	header  ColumnHeader
	data    []byte
	encoded bool
}

func NewColumnWriter(c *Codec) *ColumnWriter {
	return &ColumnWriter{codec: c}
}

// Write appends a to the column.  The writer takes ownership of a, which is
// finalized by Encode.  A nil accumulator is written as a null.
func (w *ColumnWriter) Write(a *accum.Accumulator) {
	w.accs = append(w.accs, a)
	w.encoded = false
}

func (w *ColumnWriter) Len() int {
	return len(w.accs)
}

// Encode serializes the collected values concurrently in group and then
// lays out and compresses the data section.  Emit must not be called until
// group.Wait returns.
func (w *ColumnWriter) Encode(group *errgroup.Group) {
	if len(w.accs) > MaxColumnCount {
		group.Go(func() error {
			return fmt.Errorf("theta sketch column too long: %d values", len(w.accs))
		})
		return
	}
	w.values = make([][]byte, len(w.accs))
	var values errgroup.Group
	for i, a := range w.accs {
		values.Go(func() error {
			w.values[i] = w.codec.Encode(a)
			return nil
		})
	}
	group.Go(func() error {
		if err := values.Wait(); err != nil {
			return err
		}
		return w.layout()
	})
	w.encoded = true
}

func (w *ColumnWriter) layout() error {
	w.offsets = make([]byte, 0, 4*(len(w.values)+1))
	w.offsets = binary.LittleEndian.AppendUint32(w.offsets, 0)
	var size uint64
	for _, v := range w.values {
		size += uint64(len(v))
		if size > MaxColumnData {
			return fmt.Errorf("theta sketch column data section too big: more than %d bytes", MaxColumnData)
		}
		w.offsets = binary.LittleEndian.AppendUint32(w.offsets, uint32(size))
	}
	data := make([]byte, 0, size)
	for _, v := range w.values {
		data = append(data, v...)
	}
	w.values = nil // send to GC
	format, out, err := compressBuffer(data)
	if err != nil {
		return err
	}
	w.data = out
	w.header = ColumnHeader{
		Version:           ColumnVersion,
		Count:             uint32(len(w.accs)),
		CompressionFormat: format,
		DataSize:          size,
		StoredSize:        uint64(len(out)),
	}
	return nil
}

// Emit writes the column object.  Values are encoded first if Encode was not
// called.
func (w *ColumnWriter) Emit(out io.Writer) error {
	if !w.encoded {
		var group errgroup.Group
		w.Encode(&group)
		if err := group.Wait(); err != nil {
			return err
		}
	}
	if _, err := out.Write(w.header.Serialize()); err != nil {
		return err
	}
	if _, err := out.Write(w.offsets); err != nil {
		return err
	}
	if len(w.data) > 0 {
		if _, err := out.Write(w.data); err != nil {
			return err
		}
	}
	return nil
}

func compressBuffer(b []byte) (uint8, []byte, error) {
	if len(b) == 0 {
		return CompressionFormatNone, b, nil
	}
	out := make([]byte, lz4.CompressBlockBound(len(b)))
	var c lz4.Compressor
	n, err := c.CompressBlock(b, out)
	if err != nil {
		return 0, nil, err
	}
	if n == 0 || n >= len(b) {
		// Incompressible.
		return CompressionFormatNone, b, nil
	}
	return CompressionFormatLZ4, out[:n], nil
}

func uncompressBuffer(format uint8, b []byte, size uint64) ([]byte, error) {
	if format == CompressionFormatNone {
		return b, nil
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(b, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", accum.ErrMalformed, err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("%w: column data section decompressed to %d of %d bytes", accum.ErrMalformed, n, size)
	}
	return out, nil
}

// ColumnReader reads values from a column object.  It loads the offsets and
// data section up front and decodes values on demand.  It is safe for
// concurrent use.
type ColumnReader struct {
	codec   *Codec
	header  ColumnHeader
	offsets []uint32
	data    []byte
}

func NewColumnReader(c *Codec, r io.ReaderAt) (*ColumnReader, error) {
	h, err := ReadColumnHeader(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4*(int(h.Count)+1))
	if _, err := r.ReadAt(buf, ColumnHeaderSize); err != nil {
		return nil, fmt.Errorf("reading theta sketch column offsets: %w", err)
	}
	offsets := make([]uint32, h.Count+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(buf[4*i:])
		if i > 0 && offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: column offset %d decreases", accum.ErrMalformed, i)
		}
	}
	if offsets[0] != 0 || uint64(offsets[h.Count]) != h.DataSize {
		return nil, fmt.Errorf("%w: column offsets do not span the data section", accum.ErrMalformed)
	}
	stored := make([]byte, h.StoredSize)
	if len(stored) > 0 {
		if _, err := r.ReadAt(stored, int64(ColumnHeaderSize+len(buf))); err != nil {
			return nil, fmt.Errorf("reading theta sketch column data: %w", err)
		}
	}
	data, err := uncompressBuffer(h.CompressionFormat, stored, h.DataSize)
	if err != nil {
		return nil, err
	}
	return &ColumnReader{
		codec:   c,
		header:  h,
		offsets: offsets,
		data:    data,
	}, nil
}

func (r *ColumnReader) Header() ColumnHeader {
	return r.header
}

func (r *ColumnReader) Len() int {
	return int(r.header.Count)
}

// ValueSize returns the encoded length of slot i, zero for a null.
func (r *ColumnReader) ValueSize(i int) int {
	return int(r.offsets[i+1] - r.offsets[i])
}

// Value decodes slot i.  A null slot yields a nil accumulator.
func (r *ColumnReader) Value(i int) (*accum.Accumulator, error) {
	if i < 0 || i >= r.Len() {
		return nil, fmt.Errorf("theta sketch column index %d out of range [0,%d)", i, r.Len())
	}
	start, end := r.offsets[i], r.offsets[i+1]
	if start == end {
		return nil, nil
	}
	acc, err := r.codec.Decode(r.data[start:end])
	if err != nil {
		return nil, fmt.Errorf("theta sketch column value %d: %w", i, err)
	}
	return acc, nil
}

// Merge decodes every value and reduces them with accum.MergeAll.  The result
// is nil if every slot is null.
func (r *ColumnReader) Merge(ctx context.Context, parallelism int) (*accum.Accumulator, error) {
	accs := make([]*accum.Accumulator, r.Len())
	for i := range accs {
		acc, err := r.Value(i)
		if err != nil {
			return nil, err
		}
		accs[i] = acc
	}
	return accum.MergeAll(ctx, accs, parallelism)
}
