package theta

import (
	"math"
	"strconv"
	"testing"

	"github.com/axiomhq/hyperloglog"
	"github.com/stretchr/testify/require"
)

func testConfig(lgK uint8) Config {
	return Config{LgK: lgK, Seed: DefaultSeed}
}

func TestUpdateSketchExactBelowK(t *testing.T) {
	s := NewUpdateSketch(testConfig(10))
	require.True(t, s.IsEmpty())
	for i := range 500 {
		s.UpdateInt64(int64(i))
		s.UpdateInt64(int64(i))
	}
	c := s.Compact()
	require.False(t, c.IsEmpty())
	require.Equal(t, 500, c.Retained())
	require.Equal(t, 500.0, c.Estimate())
	require.Equal(t, 1.0, c.Theta())
	lower, err := c.LowerBound(2)
	require.NoError(t, err)
	upper, err := c.UpperBound(2)
	require.NoError(t, err)
	require.Equal(t, 500.0, lower)
	require.Equal(t, 500.0, upper)
}

func TestUpdateSketchEstimationMode(t *testing.T) {
	const n = 100_000
	s := NewUpdateSketch(testConfig(12))
	for i := range n {
		s.UpdateString("user-" + strconv.Itoa(i))
	}
	c := s.Compact()
	require.Equal(t, 4096, c.Retained())
	require.Less(t, c.Theta(), 1.0)
	require.InEpsilon(t, float64(n), c.Estimate(), 0.06)
	lower, err := c.LowerBound(3)
	require.NoError(t, err)
	upper, err := c.UpperBound(3)
	require.NoError(t, err)
	require.Less(t, lower, c.Estimate())
	require.Greater(t, upper, c.Estimate())
	_, err = c.LowerBound(4)
	require.Error(t, err)
}

func TestEstimateAgreesWithHyperLogLog(t *testing.T) {
	const n = 50_000
	s := NewUpdateSketch(testConfig(12))
	hll := hyperloglog.New()
	for i := range n {
		b := []byte("item:" + strconv.Itoa(i%40_000))
		s.UpdateBytes(b)
		hll.Insert(b)
	}
	require.InEpsilon(t, float64(hll.Estimate()), s.Estimate(), 0.08)
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	s := NewUpdateSketch(DefaultConfig())
	s.UpdateString("")
	s.UpdateBytes(nil)
	require.True(t, s.IsEmpty())
	require.Zero(t, s.Estimate())
}

func TestFloatCanonicalization(t *testing.T) {
	s := NewUpdateSketch(DefaultConfig())
	s.UpdateFloat64(0)
	s.UpdateFloat64(math.Copysign(0, -1))
	s.UpdateFloat64(math.NaN())
	s.UpdateFloat64(math.Float64frombits(0x7ff8000000000001))
	require.Equal(t, 2.0, s.Estimate())
}

func TestUnionOfDisjointStreams(t *testing.T) {
	cfg := testConfig(10)
	a, b := NewUpdateSketch(cfg), NewUpdateSketch(cfg)
	for i := range 3000 {
		a.UpdateInt64(int64(i))
		b.UpdateInt64(int64(i + 3000))
	}
	u := NewUnion(cfg)
	require.NoError(t, u.Update(a.Compact()))
	require.NoError(t, u.Update(b.Compact()))
	r := u.Result()
	require.LessOrEqual(t, r.Retained(), cfg.K())
	require.InEpsilon(t, 6000.0, r.Estimate(), 0.15)
}

func TestUnionIsOrderIndependent(t *testing.T) {
	cfg := testConfig(6)
	var parts []*CompactSketch
	for p := range 5 {
		s := NewUpdateSketch(cfg)
		for i := range 40 * (p + 1) {
			s.UpdateInt64(int64(p*25 + i))
		}
		parts = append(parts, s.Compact())
	}
	forward := NewUnion(cfg)
	for _, c := range parts {
		require.NoError(t, forward.Update(c))
	}
	backward := NewUnion(cfg)
	for i := len(parts) - 1; i >= 0; i-- {
		require.NoError(t, backward.Update(parts[i]))
	}
	require.True(t, Equal(forward.Result(), backward.Result()))
}

func TestUnionRejectsSeedMismatch(t *testing.T) {
	s := NewUpdateSketch(Config{LgK: 8, Seed: 1})
	s.UpdateString("a")
	u := NewUnion(Config{LgK: 8, Seed: 2})
	require.ErrorIs(t, u.Update(s.Compact()), ErrSeedMismatch)
	// Empty sketches carry no hashes and merge regardless of seed.
	require.NoError(t, u.Update(NewEmptyCompact(Config{LgK: 8, Seed: 1})))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, Config{LgK: 3}.Validate())
	require.Error(t, Config{LgK: 27}.Validate())
}
