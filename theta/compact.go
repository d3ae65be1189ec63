package theta

// CompactSketch is an immutable, ordered sketch image.  It is cheap to query
// and to serialize but must be fed to a Union to be merged.
type CompactSketch struct {
	lgK      uint8
	seedHash uint16
	empty    bool
	theta    uint64
	hashes   []uint64
}

// NewEmptyCompact returns the sketch of an empty stream.
func NewEmptyCompact(c Config) *CompactSketch {
	return &CompactSketch{
		lgK:      c.LgK,
		seedHash: c.SeedHash(),
		empty:    true,
		theta:    MaxTheta,
	}
}

func (c *CompactSketch) IsEmpty() bool { return c.empty }
func (c *CompactSketch) LgK() uint8 { return c.lgK }
func (c *CompactSketch) SeedHash() uint16 { return c.seedHash }
func (c *CompactSketch) Retained() int { return len(c.hashes) }

// Theta returns the sampling threshold as a fraction in (0, 1].
func (c *CompactSketch) Theta() float64 {
	return thetaFraction(c.theta)
}

func (c *CompactSketch) Estimate() float64 {
	if c.empty {
		return 0
	}
	return estimate(len(c.hashes), c.theta)
}

// LowerBound returns the approximate lower error bound for the given number
// of standard deviations (1, 2, or 3).
func (c *CompactSketch) LowerBound(numStdDevs uint8) (float64, error) {
	lower, _, err := bounds(len(c.hashes), c.theta, numStdDevs)
	return lower, err
}

// UpperBound returns the approximate upper error bound for the given number
// of standard deviations (1, 2, or 3).
func (c *CompactSketch) UpperBound(numStdDevs uint8) (float64, error) {
	_, upper, err := bounds(len(c.hashes), c.theta, numStdDevs)
	return upper, err
}

// Compact returns c.
func (c *CompactSketch) Compact() *CompactSketch {
	return c
}
