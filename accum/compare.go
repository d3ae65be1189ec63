package accum

import (
	"bytes"
	"cmp"
)

// Compare orders accumulators by estimate and breaks ties by comparing their
// canonical encodings.  The order carries no meaning beyond giving the
// storage layer a deterministic sort.  Both accumulators are finalized.
func Compare(a, b *Accumulator) int {
	if c := cmp.Compare(a.Estimate(), b.Estimate()); c != 0 {
		return c
	}
	return bytes.Compare(a.canonical(), b.canonical())
}
