package theta

import (
	"slices"
)

// UpdateSketch is a mutable sketch that accepts raw values.  It keeps up to
// 2k hashes before trimming back to the k smallest.
type UpdateSketch struct {
	lgK      uint8
	seedHash uint16
	hasher   *hasher
	theta    uint64
	entries  map[uint64]struct{}
	empty    bool
}

func NewUpdateSketch(c Config) *UpdateSketch {
	return &UpdateSketch{
		lgK:      c.LgK,
		seedHash: c.SeedHash(),
		hasher:   newHasher(c.Seed),
		theta:    MaxTheta,
		entries:  make(map[uint64]struct{}),
		empty:    true,
	}
}

// UpdateBytes ignores an empty slice.
func (s *UpdateSketch) UpdateBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	s.insert(s.hasher.bytes(b))
}

// UpdateString ignores an empty string.
func (s *UpdateSketch) UpdateString(v string) {
	if v == "" {
		return
	}
	s.insert(s.hasher.string(v))
}

func (s *UpdateSketch) UpdateInt64(v int64) {
	s.insert(s.hasher.uint64(uint64(v)))
}

func (s *UpdateSketch) UpdateUint64(v uint64) {
	s.insert(s.hasher.uint64(v))
}

func (s *UpdateSketch) UpdateFloat64(v float64) {
	s.insert(s.hasher.uint64(canonicalFloat(v)))
}

func (s *UpdateSketch) insert(h uint64) {
	s.empty = false
	s.insertHash(h)
}

func (s *UpdateSketch) insertHash(h uint64) {
	if h == 0 || h >= s.theta {
		return
	}
	s.entries[h] = struct{}{}
	if len(s.entries) > 2*s.k() {
		s.rebuild()
	}
}

// lowerTheta drops the threshold to theta (if lower) and discards the
// entries at or above it.
func (s *UpdateSketch) lowerTheta(theta uint64) {
	if theta >= s.theta {
		return
	}
	s.theta = theta
	for h := range s.entries {
		if h >= theta {
			delete(s.entries, h)
		}
	}
}

func (s *UpdateSketch) rebuild() {
	hashes := s.sorted()
	if len(hashes) <= s.k() {
		return
	}
	s.theta = hashes[s.k()]
	for _, h := range hashes[s.k():] {
		delete(s.entries, h)
	}
}

func (s *UpdateSketch) sorted() []uint64 {
	hashes := make([]uint64, 0, len(s.entries))
	for h := range s.entries {
		if h < s.theta {
			hashes = append(hashes, h)
		}
	}
	slices.Sort(hashes)
	return hashes
}

func (s *UpdateSketch) k() int {
	return 1 << s.lgK
}

func (s *UpdateSketch) IsEmpty() bool { return s.empty }
func (s *UpdateSketch) LgK() uint8 { return s.lgK }
func (s *UpdateSketch) Retained() int { return len(s.entries) }

// Estimate reports the estimate of the compacted form so that an update
// sketch and its compact image always agree.
func (s *UpdateSketch) Estimate() float64 {
	return s.Compact().Estimate()
}

// Compact returns the canonical immutable image of the sketch: at most k
// hashes, sorted, all below theta.
func (s *UpdateSketch) Compact() *CompactSketch {
	c := &CompactSketch{
		lgK:      s.lgK,
		seedHash: s.seedHash,
		theta:    s.theta,
		hashes:   s.sorted(),
	}
	if k := s.k(); len(c.hashes) > k {
		c.theta = c.hashes[k]
		c.hashes = c.hashes[:k]
	}
	c.empty = s.empty || (len(c.hashes) == 0 && c.theta == MaxTheta)
	if c.empty {
		c.theta = MaxTheta
		c.hashes = nil
	}
	return c
}
