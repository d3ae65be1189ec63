package codec

import (
	"slices"
	"testing"

	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/order"
	"github.com/brimdata/thetasketch/theta"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var testConfig = theta.Config{LgK: 6, Seed: theta.DefaultSeed}

func build(from, to int) *accum.Accumulator {
	s := theta.NewUpdateSketch(testConfig)
	for i := from; i < to; i++ {
		s.UpdateInt64(int64(i))
	}
	return accum.NewFinalized(testConfig, s.Compact())
}

func accumulating(from, to int) *accum.Accumulator {
	mid := (from + to) / 2
	return accum.Combine(build(from, mid), build(mid, to))
}

func TestEncodeDecode(t *testing.T) {
	c := New(testConfig)
	for _, a := range []*accum.Accumulator{
		accum.New(testConfig),
		build(0, 10),
		build(0, 3000),
		accumulating(0, 500),
	} {
		want := a.Estimate()
		b := c.Encode(a)
		out, err := c.Decode(b)
		require.NoError(t, err)
		require.Equal(t, want, out.Estimate())
		require.Equal(t, b, c.Encode(out))
	}
}

func TestAppend(t *testing.T) {
	c := New(testConfig)
	prefix := []byte("prefix")
	b := c.Append(slices.Clone(prefix), build(0, 5))
	require.Equal(t, prefix, b[:len(prefix)])
	out, err := c.Decode(b[len(prefix):])
	require.NoError(t, err)
	require.Equal(t, 5.0, out.Estimate())
	require.Nil(t, c.Encode(nil))
}

func TestDecodeIsStrict(t *testing.T) {
	c := New(testConfig)
	b := c.Encode(build(0, 10))
	_, err := c.Decode(b[:len(b)-3])
	require.ErrorIs(t, err, accum.ErrMalformed)
	_, err = c.Decode([]byte{2, 0})
	require.ErrorIs(t, err, accum.ErrUnrecognizedVersion)
	_, err = New(theta.Config{LgK: 6, Seed: 7}).Decode(b)
	require.ErrorIs(t, err, accum.ErrSeedMismatch)
}

func TestEstimateMaxSerializedSize(t *testing.T) {
	c := New(testConfig)
	require.Zero(t, c.EstimateMaxSerializedSize(nil))

	a := build(0, 1000)
	size := c.EstimateMaxSerializedSize(a)
	require.Len(t, c.Encode(a), size)

	for _, n := range []int{0, 2, 40, 5000} {
		a := accumulating(0, n)
		size := c.EstimateMaxSerializedSize(a)
		require.Equal(t, accum.Accumulating, a.State())
		require.LessOrEqual(t, len(c.Encode(a)), size)
	}
}

func TestCompareFn(t *testing.T) {
	small, large := build(0, 3), build(0, 30)
	asc := New(testConfig).Compare
	require.Negative(t, asc(nil, small))
	require.Positive(t, asc(large, small))
	require.Zero(t, asc(nil, nil))

	desc := NewCompareFn(order.Desc, order.NullsLast)
	require.Positive(t, desc(nil, small))
	require.Negative(t, desc(large, small))

	vals := []*accum.Accumulator{large, nil, small, accum.New(testConfig)}
	slices.SortFunc(vals, NewCompareFn(order.Asc, order.NullsLast))
	require.True(t, vals[0].IsEmpty())
	require.Same(t, small, vals[1])
	require.Same(t, large, vals[2])
	require.Nil(t, vals[3])
}

func FuzzDecode(f *testing.F) {
	c := New(testConfig)
	f.Add(c.Encode(build(0, 100)))
	f.Add(c.Encode(accumulating(0, 40)))
	f.Add([]byte{accum.Version, accum.FlagCompact | accum.FlagEmpty})
	f.Fuzz(func(t *testing.T, b []byte) {
		a, err := c.Decode(b)
		if err != nil {
			return
		}
		// Anything accepted re-encodes canonically.
		enc := c.Encode(a)
		again, err := c.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, enc, c.Encode(again))
	})
}

func TestEncodeOwnedValuesConcurrently(t *testing.T) {
	c := New(testConfig)
	accs := make([]*accum.Accumulator, 16)
	for i := range accs {
		accs[i] = accumulating(i*10, i*10+40)
	}
	encoded := make([][]byte, len(accs))
	var group errgroup.Group
	for i, a := range accs {
		group.Go(func() error {
			encoded[i] = c.Encode(a)
			return nil
		})
	}
	require.NoError(t, group.Wait())
	for i, b := range encoded {
		acc, err := c.Decode(b)
		require.NoError(t, err)
		require.Equal(t, build(i*10, i*10+40).Estimate(), acc.Estimate())
	}
}
