package theta

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactRoundtrip(t *testing.T) {
	cfg := testConfig(8)
	s := NewUpdateSketch(cfg)
	for i := range 1000 {
		s.UpdateInt64(int64(i))
	}
	c := s.Compact()
	b, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, c.SerializedSize())
	out, err := Decode(b, cfg.Seed)
	require.NoError(t, err)
	require.IsType(t, &CompactSketch{}, out)
	require.True(t, Equal(c, out.(*CompactSketch)))
	require.Equal(t, c.Estimate(), out.Estimate())
}

func TestUpdateImageRoundtrip(t *testing.T) {
	cfg := testConfig(8)
	s := NewUpdateSketch(cfg)
	for i := range 300 {
		s.UpdateInt64(int64(i))
	}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	out, err := Decode(b, cfg.Seed)
	require.NoError(t, err)
	u, ok := out.(*UpdateSketch)
	require.True(t, ok)
	require.True(t, Equal(s.Compact(), u.Compact()))
	u.UpdateInt64(100_000)
	require.Equal(t, 301, u.Retained())
}

func TestEmptyImage(t *testing.T) {
	b, err := NewEmptyCompact(DefaultConfig()).MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, EmptySize)
	out, err := Decode(b, 12345)
	require.NoError(t, err)
	require.True(t, out.IsEmpty())
	require.Zero(t, out.Estimate())
}

func TestDecodeRejectsCorruptImages(t *testing.T) {
	cfg := testConfig(8)
	s := NewUpdateSketch(cfg)
	s.UpdateString("a")
	s.UpdateString("b")
	good, err := s.Compact().MarshalBinary()
	require.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		return f(append([]byte(nil), good...))
	}
	cases := map[string][]byte{
		"short":     good[:5],
		"truncated": good[:len(good)-3],
		"version":   mutate(func(b []byte) []byte { b[0] = 9; return b }),
		"family":    mutate(func(b []byte) []byte { b[1] = 7; return b }),
		"lgK":       mutate(func(b []byte) []byte { b[2] = 40; return b }),
		"flags":     mutate(func(b []byte) []byte { b[3] |= 0x80; return b }),
		"unordered": mutate(func(b []byte) []byte { b[3] &^= flagOrdered; return b }),
		"theta":     mutate(func(b []byte) []byte { binary.LittleEndian.PutUint64(b[16:], 0); return b }),
		"swapped": mutate(func(b []byte) []byte {
			h0 := binary.LittleEndian.Uint64(b[HeaderSize:])
			h1 := binary.LittleEndian.Uint64(b[HeaderSize+8:])
			binary.LittleEndian.PutUint64(b[HeaderSize:], h1)
			binary.LittleEndian.PutUint64(b[HeaderSize+8:], h0)
			return b
		}),
		"trailing": mutate(func(b []byte) []byte { return append(b, 0) }),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(b, cfg.Seed)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestDecodeRejectsForeignSeed(t *testing.T) {
	s := NewUpdateSketch(Config{LgK: 8, Seed: 1})
	s.UpdateString("a")
	b, err := s.Compact().MarshalBinary()
	require.NoError(t, err)
	_, err = Decode(b, 2)
	require.ErrorIs(t, err, ErrSeedMismatch)
}
