package theta

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Serialized image layout (little endian):
//
//	0  serial version    1  family         2  lgK     3  flags
//	4  seed hash (2)     6  reserved (2)
//	8  count (4)         12 reserved (4)   16 theta (8)
//	24 hashes (count × 8)
//
// Bytes from offset 8 on are omitted when the empty flag is set.
const (
	SerialVersion = 3

	FamilyUpdate  = 2
	FamilyCompact = 3

	flagEmpty   = 1 << 2
	flagOrdered = 1 << 4
	knownFlags  = flagEmpty | flagOrdered

	EmptySize  = 8
	HeaderSize = 24
)

// MaxCompactSize returns the largest possible size of a compact image
// holding up to n hashes.
func MaxCompactSize(n int) int {
	return HeaderSize + 8*n
}

// SerializedSize returns the exact length of c's image.
func (c *CompactSketch) SerializedSize() int {
	if c.empty {
		return EmptySize
	}
	return MaxCompactSize(len(c.hashes))
}

func (c *CompactSketch) MarshalBinary() ([]byte, error) {
	return c.AppendBinary(make([]byte, 0, c.SerializedSize()))
}

// AppendBinary appends the compact image of c to b.
func (c *CompactSketch) AppendBinary(b []byte) ([]byte, error) {
	flags := byte(flagOrdered)
	if c.empty {
		flags |= flagEmpty
	}
	b = appendPreamble(b, FamilyCompact, c.lgK, flags, c.seedHash)
	if c.empty {
		return b, nil
	}
	return appendHashes(b, c.theta, c.hashes), nil
}

// MarshalBinary writes the non-compact image of s, which can be decoded back
// into a mutable sketch.
func (s *UpdateSketch) MarshalBinary() ([]byte, error) {
	var flags byte
	if s.empty {
		flags |= flagEmpty
	}
	b := appendPreamble(nil, FamilyUpdate, s.lgK, flags, s.seedHash)
	if s.empty {
		return b, nil
	}
	return appendHashes(b, s.theta, s.sorted()), nil
}

func appendPreamble(b []byte, family, lgK, flags byte, seedHash uint16) []byte {
	b = append(b, SerialVersion, family, lgK, flags)
	b = binary.LittleEndian.AppendUint16(b, seedHash)
	return append(b, 0, 0)
}

func appendHashes(b []byte, theta uint64, hashes []uint64) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(hashes)))
	b = append(b, 0, 0, 0, 0)
	b = binary.LittleEndian.AppendUint64(b, theta)
	for _, h := range hashes {
		b = binary.LittleEndian.AppendUint64(b, h)
	}
	return b
}

// Sketch is the read-only view shared by the decoded image types.
type Sketch interface {
	IsEmpty() bool
	Estimate() float64
	Retained() int
	LgK() uint8
	Compact() *CompactSketch
}

var (
	_ Sketch = (*CompactSketch)(nil)
	_ Sketch = (*UpdateSketch)(nil)
)

// Decode parses a serialized image produced with the same seed.  A compact
// image yields a *CompactSketch and a non-compact image yields an
// *UpdateSketch.  Decode never retains b.
func Decode(b []byte, seed uint64) (Sketch, error) {
	if len(b) < EmptySize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte preamble", ErrCorrupt, len(b), EmptySize)
	}
	if b[0] != SerialVersion {
		return nil, fmt.Errorf("%w: unknown serial version %d", ErrCorrupt, b[0])
	}
	family, lgK, flags := b[1], b[2], b[3]
	if family != FamilyUpdate && family != FamilyCompact {
		return nil, fmt.Errorf("%w: unknown family %d", ErrCorrupt, family)
	}
	if lgK < MinLgK || lgK > MaxLgK {
		return nil, fmt.Errorf("%w: lgK %d out of range", ErrCorrupt, lgK)
	}
	if flags&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrCorrupt, flags)
	}
	cfg := Config{LgK: lgK, Seed: seed}
	sh := binary.LittleEndian.Uint16(b[4:])
	if flags&flagEmpty != 0 {
		if len(b) != EmptySize {
			return nil, fmt.Errorf("%w: empty image has %d trailing bytes", ErrCorrupt, len(b)-EmptySize)
		}
		// Empty images are seed independent.
		if family == FamilyCompact {
			return NewEmptyCompact(cfg), nil
		}
		return NewUpdateSketch(cfg), nil
	}
	if sh != cfg.SeedHash() {
		return nil, fmt.Errorf("%w: image seed hash %d, expected %d", ErrSeedMismatch, sh, cfg.SeedHash())
	}
	theta, hashes, err := decodeHashes(b)
	if err != nil {
		return nil, err
	}
	if family == FamilyCompact {
		if flags&flagOrdered == 0 {
			return nil, fmt.Errorf("%w: compact image is not ordered", ErrCorrupt)
		}
		if len(hashes) > cfg.K() {
			return nil, fmt.Errorf("%w: compact image holds %d hashes, more than k=%d", ErrCorrupt, len(hashes), cfg.K())
		}
		for i := 1; i < len(hashes); i++ {
			if hashes[i-1] >= hashes[i] {
				return nil, fmt.Errorf("%w: compact hashes out of order at %d", ErrCorrupt, i)
			}
		}
		c := &CompactSketch{lgK: lgK, seedHash: sh, theta: theta, hashes: hashes}
		if len(hashes) == 0 && theta == MaxTheta {
			c.empty = true
			c.hashes = nil
		}
		return c, nil
	}
	if len(hashes) > 2*cfg.K() {
		return nil, fmt.Errorf("%w: update image holds %d hashes, more than 2k=%d", ErrCorrupt, len(hashes), 2*cfg.K())
	}
	s := NewUpdateSketch(cfg)
	s.empty = false
	s.theta = theta
	for _, h := range hashes {
		s.entries[h] = struct{}{}
	}
	if len(s.entries) != len(hashes) {
		return nil, fmt.Errorf("%w: update image holds duplicate hashes", ErrCorrupt)
	}
	return s, nil
}

func decodeHashes(b []byte) (uint64, []uint64, error) {
	if len(b) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrCorrupt, len(b), HeaderSize)
	}
	count := int(binary.LittleEndian.Uint32(b[8:]))
	theta := binary.LittleEndian.Uint64(b[16:])
	if theta == 0 || theta > MaxTheta {
		return 0, nil, fmt.Errorf("%w: theta %d out of range", ErrCorrupt, theta)
	}
	if want := MaxCompactSize(count); len(b) != want {
		return 0, nil, fmt.Errorf("%w: %d hashes need %d bytes, have %d", ErrCorrupt, count, want, len(b))
	}
	hashes := make([]uint64, count)
	for i := range hashes {
		h := binary.LittleEndian.Uint64(b[HeaderSize+8*i:])
		if h == 0 || h >= theta {
			return 0, nil, fmt.Errorf("%w: hash %d at %d is not below theta", ErrCorrupt, h, i)
		}
		hashes[i] = h
	}
	return theta, hashes, nil
}

// Equal reports whether a and b hold the same image.
func Equal(a, b *CompactSketch) bool {
	return a.lgK == b.lgK && a.seedHash == b.seedHash && a.empty == b.empty &&
		a.theta == b.theta && slices.Equal(a.hashes, b.hashes)
}
