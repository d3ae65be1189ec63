package accum

import (
	"encoding/base64"
	"errors"
	"slices"
	"testing"

	"github.com/brimdata/thetasketch/theta"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func samples() map[string]func() *Accumulator {
	return map[string]func() *Accumulator{
		"empty":        func() *Accumulator { return New(testConfig) },
		"exact":        func() *Accumulator { return build(testConfig, 0, 20) },
		"estimation":   func() *Accumulator { return build(testConfig, 0, 5000) },
		"accumulating": func() *Accumulator { return Combine(build(testConfig, 0, 30), build(testConfig, 20, 90)) },
	}
}

func TestRoundtrip(t *testing.T) {
	for name, sample := range samples() {
		t.Run(name, func(t *testing.T) {
			h := sample()
			want := h.Estimate()
			b, err := h.MarshalBinary()
			require.NoError(t, err)
			require.Len(t, b, h.EncodedSize())
			out, err := Unmarshal(testConfig, b)
			require.NoError(t, err)
			require.Equal(t, want, out.Estimate())
			again, err := out.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, b, again)
		})
	}
}

func TestEncodedSizeDoesNotFinalize(t *testing.T) {
	acc := Combine(build(testConfig, 0, 30), build(testConfig, 20, 90))
	size := acc.EncodedSize()
	require.Equal(t, Accumulating, acc.State())
	b, err := acc.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, size)
}

func TestZeroLengthPayloadIsEmpty(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		{Version, FlagCompact | FlagEmpty},
		{Version, 0},
	} {
		acc, err := Unmarshal(testConfig, b)
		require.NoError(t, err)
		require.True(t, acc.IsEmpty())
		require.Equal(t, 0.0, acc.Estimate())
	}
}

func TestUnmarshalErrors(t *testing.T) {
	good, err := build(testConfig, 0, 10).MarshalBinary()
	require.NoError(t, err)
	_, err = Unmarshal(testConfig, []byte{9, FlagCompact})
	require.ErrorIs(t, err, ErrUnrecognizedVersion)
	_, err = Unmarshal(testConfig, good[:len(good)-1])
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Unmarshal(testConfig, []byte{Version})
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Unmarshal(testConfig, []byte{Version, 0x80})
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Unmarshal(testConfig, append([]byte{Version, FlagEmpty}, good[PreambleSize:]...))
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Unmarshal(testConfig, append([]byte{Version, 0}, good[PreambleSize:]...))
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Unmarshal(theta.Config{LgK: testConfig.LgK, Seed: 1}, good)
	require.ErrorIs(t, err, ErrSeedMismatch)
}

func TestUnionPayloadDecodesAccumulating(t *testing.T) {
	s := theta.NewUpdateSketch(testConfig)
	for i := range 40 {
		s.UpdateInt64(int64(i))
	}
	image, err := s.MarshalBinary()
	require.NoError(t, err)
	acc, err := Unmarshal(testConfig, append([]byte{Version, 0}, image...))
	require.NoError(t, err)
	require.Equal(t, Accumulating, acc.State())
	require.Equal(t, s.Estimate(), acc.Estimate())
	b, err := acc.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, byte(FlagCompact), b[1])
}

func TestDeserializeSafeRecoversFromCorruption(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	good, err := build(testConfig, 0, 10).MarshalBinary()
	require.NoError(t, err)
	acc := DeserializeSafe(testConfig, good[:len(good)-5], zap.New(core))
	require.NotNil(t, acc)
	require.True(t, acc.IsEmpty())
	require.Equal(t, 0.0, acc.Estimate())
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "replacing malformed theta sketch with an empty sketch", logs.All()[0].Message)

	acc = DeserializeSafe(testConfig, good, nil)
	require.Equal(t, 10.0, acc.Estimate())
}

func TestDeserializeSafeAcceptsBareImage(t *testing.T) {
	image, err := build(testConfig, 0, 12).Finalize().MarshalBinary()
	require.NoError(t, err)
	acc := DeserializeSafe(testConfig, image, nil)
	require.Equal(t, Finalized, acc.State())
	require.Equal(t, 12.0, acc.Estimate())
}

func TestFromRaw(t *testing.T) {
	encoded, err := build(theta.DefaultConfig(), 0, 25).MarshalBinary()
	require.NoError(t, err)
	cases := []struct {
		name string
		raw  any
		want float64
	}{
		{"bytes", encoded, 25},
		{"base64", base64.StdEncoding.EncodeToString(encoded), 25},
		{"scalar string", "hello", 1},
		{"int", 7, 1},
		{"uint", uint16(7), 1},
		{"float", 2.5, 1},
		{"bool", true, 1},
		{"empty sequence", []string{}, 0},
		{"sequence", []any{"a", 1, int64(1), uint8(1), 2.5, nil, true, "a"}, 4},
		{"typed sequence", []int64{1, 2, 3, 3}, 3},
		{"array", [2]string{"x", "y"}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			acc, err := FromRaw(theta.DefaultConfig(), c.raw)
			require.NoError(t, err)
			require.NotNil(t, acc)
			require.Equal(t, c.want, acc.Estimate())
		})
	}
}

func TestFromRawPassesThrough(t *testing.T) {
	acc, err := FromRaw(testConfig, nil)
	require.NoError(t, err)
	require.Nil(t, acc)

	h := build(testConfig, 0, 3)
	acc, err = FromRaw(testConfig, h)
	require.NoError(t, err)
	require.Same(t, h, acc)

	u := theta.NewUnion(testConfig)
	u.UpdateString("z")
	acc, err = FromRaw(testConfig, u)
	require.NoError(t, err)
	require.Equal(t, 1.0, acc.Estimate())

	foreign := theta.NewUpdateSketch(theta.Config{LgK: 5, Seed: 1})
	foreign.UpdateString("z")
	_, err = FromRaw(testConfig, foreign)
	require.ErrorIs(t, err, ErrSeedMismatch)

	other, err := FromRaw(theta.Config{LgK: 5, Seed: 1}, "z")
	require.NoError(t, err)
	b, err := other.MarshalBinary()
	require.NoError(t, err)
	acc, err = FromRaw(testConfig, b)
	require.ErrorIs(t, err, ErrSeedMismatch)
	require.Nil(t, acc)
}

func TestFromRawChecksAccumulatorSeed(t *testing.T) {
	foreign, err := FromRaw(theta.Config{LgK: 8, Seed: 12345}, "a")
	require.NoError(t, err)
	acc, err := FromRaw(testConfig, foreign)
	require.ErrorIs(t, err, ErrSeedMismatch)
	require.Nil(t, acc)

	empty := New(theta.Config{LgK: 8, Seed: 12345})
	acc, err = FromRaw(testConfig, empty)
	require.NoError(t, err)
	require.Same(t, empty, acc)
}

func TestFromRawShortBase64IsScalar(t *testing.T) {
	for _, s := range []string{"AQE=", "AQI=", "AQM=", "AQAA"} {
		acc, err := FromRaw(testConfig, s)
		require.NoError(t, err, s)
		require.Equal(t, 1.0, acc.Estimate(), s)
	}
}

func TestFromRawMalformedBytes(t *testing.T) {
	good, err := build(testConfig, 0, 10).MarshalBinary()
	require.NoError(t, err)
	for _, b := range [][]byte{good[:len(good)-1], {7, 7, 7}, {Version}} {
		acc, err := FromRaw(testConfig, b)
		require.ErrorIs(t, err, ErrMalformed)
		require.NotNil(t, acc)
		require.True(t, acc.IsEmpty())
	}
}

func TestFromRawUnsupportedShape(t *testing.T) {
	for _, raw := range []any{
		map[string]int{"a": 1},
		struct{ X int }{1},
		[]any{"a", []any{"b"}},
		make(chan int),
	} {
		acc, err := FromRaw(testConfig, raw)
		require.Nil(t, acc)
		var shapeErr *UnsupportedShapeError
		require.True(t, errors.As(err, &shapeErr), "%T", raw)
		require.False(t, errors.Is(err, ErrMalformed))
	}
}

func TestCompareIsTotalAndStable(t *testing.T) {
	var accs []*Accumulator
	for _, sample := range samples() {
		accs = append(accs, sample())
	}
	accs = append(accs, build(testConfig, 100, 120), build(testConfig, 200, 220), New(testConfig))
	for _, a := range accs {
		for _, b := range accs {
			require.Equal(t, -Compare(a, b), Compare(b, a))
			enc, err := a.MarshalBinary()
			require.NoError(t, err)
			decoded, err := Unmarshal(testConfig, enc)
			require.NoError(t, err)
			require.Equal(t, Compare(a, b), Compare(decoded, b))
		}
	}
	slices.SortFunc(accs, Compare)
	for i := 1; i < len(accs); i++ {
		require.LessOrEqual(t, Compare(accs[i-1], accs[i]), 0)
	}
	// Same estimate, different hashes.
	x, y := build(testConfig, 100, 120), build(testConfig, 200, 220)
	require.Equal(t, x.Estimate(), y.Estimate())
	require.NotZero(t, Compare(x, y))
}

func FuzzDeserializeSafe(f *testing.F) {
	good, _ := build(testConfig, 0, 40).MarshalBinary()
	f.Add(good)
	f.Add([]byte{Version, 0})
	f.Add([]byte{theta.SerialVersion, theta.FamilyUpdate, 5, 0, 0, 0, 0, 0})
	f.Fuzz(func(t *testing.T, b []byte) {
		acc := DeserializeSafe(testConfig, b, nil)
		require.NotNil(t, acc)
		require.GreaterOrEqual(t, acc.Estimate(), 0.0)
	})
}
