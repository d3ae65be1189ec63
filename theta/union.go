package theta

import "fmt"

// Union merges sketches and raw values into a running set.  The union's
// threshold is the smallest theta of everything it has absorbed.
type Union struct {
	gadget *UpdateSketch
}

func NewUnion(c Config) *Union {
	return &Union{gadget: NewUpdateSketch(c)}
}

// NewUnionFrom adopts s as the union's state.  The caller must not use s
// afterwards.
func NewUnionFrom(s *UpdateSketch) *Union {
	return &Union{gadget: s}
}

func (u *Union) UpdateBytes(b []byte) { u.gadget.UpdateBytes(b) }
func (u *Union) UpdateString(v string) { u.gadget.UpdateString(v) }
func (u *Union) UpdateInt64(v int64) { u.gadget.UpdateInt64(v) }
func (u *Union) UpdateUint64(v uint64) { u.gadget.UpdateUint64(v) }
func (u *Union) UpdateFloat64(v float64) { u.gadget.UpdateFloat64(v) }
func (u *Union) LgK() uint8 { return u.gadget.lgK }
func (u *Union) SeedHash() uint16 { return u.gadget.seedHash }
func (u *Union) IsEmpty() bool { return u.gadget.empty }
func (u *Union) MarshalBinary() ([]byte, error) { return u.gadget.MarshalBinary() }

// Retained returns the number of hashes currently held, which bounds the
// size of the result.
func (u *Union) Retained() int {
	return len(u.gadget.entries)
}

// Update merges the sketch c into the union.  Empty sketches are ignored
// without checking their seed.
func (u *Union) Update(c *CompactSketch) error {
	if c == nil || c.empty {
		return nil
	}
	if c.seedHash != u.gadget.seedHash {
		return fmt.Errorf("%w: union seed hash %d, sketch seed hash %d", ErrSeedMismatch, u.gadget.seedHash, c.seedHash)
	}
	u.gadget.empty = false
	u.gadget.lowerTheta(c.theta)
	for _, h := range c.hashes {
		if h >= u.gadget.theta {
			// Hashes are sorted so nothing further can be retained.
			break
		}
		u.gadget.insertHash(h)
	}
	return nil
}

// Result returns the compact image of the union.  The union remains usable.
func (u *Union) Result() *CompactSketch {
	return u.gadget.Compact()
}
