// Package theta implements the theta sketch family: an UpdateSketch built
// from raw values, an immutable CompactSketch used for queries and storage,
// and a Union that merges sketches.
//
// A sketch retains the distinct 63-bit hashes of its input that fall below a
// threshold theta.  While fewer than k = 2^lgK hashes have been seen, theta is
// MaxTheta and the sketch is exact.  Past that point, theta drops to the
// (k+1)th smallest hash and the estimate is count/(theta/MaxTheta).  Because
// the retained set is always "the k smallest distinct hashes below the
// smallest theta seen", unions produce the same result regardless of the
// order in which their inputs arrive.
package theta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxTheta is the threshold of a sketch in exact mode.
	MaxTheta = uint64(math.MaxInt64)

	MinLgK     = 4
	MaxLgK     = 26
	DefaultLgK = 14

	DefaultSeed = 9001
)

var (
	ErrSeedMismatch = errors.New("theta sketch seed mismatch")
	ErrCorrupt      = errors.New("corrupt theta sketch image")
)

// Config holds the parameters shared by every sketch in a column.  Sketches
// with different seeds cannot be merged.
type Config struct {
	LgK  uint8  `yaml:"lg_k" json:"lg_k"`
	Seed uint64 `yaml:"seed" json:"seed"`
}

func DefaultConfig() Config {
	return Config{LgK: DefaultLgK, Seed: DefaultSeed}
}

func (c Config) Validate() error {
	if c.LgK < MinLgK || c.LgK > MaxLgK {
		return fmt.Errorf("theta: lg_k must be between %d and %d: %d", MinLgK, MaxLgK, c.LgK)
	}
	return nil
}

// K returns the nominal number of retained hashes.
func (c Config) K() int {
	return 1 << c.LgK
}

func (c Config) SeedHash() uint16 {
	return seedHash(c.Seed)
}

func seedHash(seed uint64) uint16 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	h := uint16(xxhash.Sum64(b[:]))
	if h == 0 {
		// Zero is reserved so that an all-zero header never validates.
		h = 1
	}
	return h
}

// hasher computes seeded 63-bit hashes.  It keeps its digest and scratch
// buffer so that updates do not allocate.
type hasher struct {
	seed    [8]byte
	digest  *xxhash.Digest
	scratch [8]byte
}

func newHasher(seed uint64) *hasher {
	h := &hasher{digest: xxhash.New()}
	binary.LittleEndian.PutUint64(h.seed[:], seed)
	return h
}

func (h *hasher) bytes(b []byte) uint64 {
	h.digest.Reset()
	h.digest.Write(h.seed[:])
	h.digest.Write(b)
	return h.digest.Sum64() >> 1
}

func (h *hasher) string(s string) uint64 {
	h.digest.Reset()
	h.digest.Write(h.seed[:])
	h.digest.WriteString(s)
	return h.digest.Sum64() >> 1
}

func (h *hasher) uint64(v uint64) uint64 {
	binary.LittleEndian.PutUint64(h.scratch[:], v)
	return h.bytes(h.scratch[:])
}

// canonicalFloat maps -0 to 0 and every NaN to a single NaN so that equal
// values hash equally.
func canonicalFloat(v float64) uint64 {
	switch {
	case v == 0:
		return 0
	case math.IsNaN(v):
		return 0x7ff8000000000000
	}
	return math.Float64bits(v)
}

func thetaFraction(theta uint64) float64 {
	return float64(theta) / float64(MaxTheta)
}

func estimate(count int, theta uint64) float64 {
	if theta == MaxTheta {
		return float64(count)
	}
	return float64(count) / thetaFraction(theta)
}

// bounds approximates the binomial confidence interval of an estimate with
// a normal distribution.  In exact mode both bounds equal the count.
func bounds(count int, theta uint64, numStdDevs uint8) (float64, float64, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return 0, 0, fmt.Errorf("theta: numStdDevs must be 1, 2, or 3: %d", numStdDevs)
	}
	if theta == MaxTheta {
		return float64(count), float64(count), nil
	}
	p := thetaFraction(theta)
	est := float64(count) / p
	sd := math.Sqrt(float64(count)*(1-p)) / p
	lower := max(float64(count), est-float64(numStdDevs)*sd)
	return lower, est + float64(numStdDevs)*sd, nil
}
