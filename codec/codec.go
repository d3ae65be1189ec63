// Package codec is the storage contract of the theta sketch column: how a
// value is written, read back, sized and ordered.
//
// Values handed to Decode are storage content that was validated when it was
// ingested, so every decode problem is returned as an error and is never
// papered over.  The permissive path used at ingestion time lives in
// accum.DeserializeSafe.
package codec

import (
	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/order"
	"github.com/brimdata/thetasketch/theta"
)

// Codec holds no mutable state and is safe for concurrent use on
// accumulators owned by the caller.  Encode, Append, and Compare finalize
// their arguments, so an accumulator must not be shared between goroutines
// that call them.
type Codec struct {
	cfg     theta.Config
	compare CompareFn
}

func New(cfg theta.Config) *Codec {
	return &Codec{
		cfg:     cfg,
		compare: NewCompareFn(order.Asc, order.NullsFirst),
	}
}

func (c *Codec) Config() theta.Config {
	return c.cfg
}

// Encode finalizes a and returns its serialized form.  A nil accumulator
// encodes to nil.
func (c *Codec) Encode(a *accum.Accumulator) []byte {
	return c.Append(nil, a)
}

// Append finalizes a and appends its serialized form to dst.
func (c *Codec) Append(dst []byte, a *accum.Accumulator) []byte {
	if a == nil {
		return dst
	}
	// Accumulator encoding cannot fail.
	dst, _ = a.AppendBinary(dst)
	return dst
}

// Decode reads a stored value.  Errors wrap accum.ErrUnrecognizedVersion,
// accum.ErrSeedMismatch, or accum.ErrMalformed.  The result does not retain b.
func (c *Codec) Decode(b []byte) (*accum.Accumulator, error) {
	return accum.Unmarshal(c.cfg, b)
}

// EstimateMaxSerializedSize returns an upper bound on the length of
// Encode(a).  It is exact for a finalized accumulator.  For an accumulating
// one it assumes the union finalizes to the largest image it could hold.
// It does not finalize a.
func (c *Codec) EstimateMaxSerializedSize(a *accum.Accumulator) int {
	if a == nil {
		return 0
	}
	if a.State() == accum.Finalized {
		return a.EncodedSize()
	}
	n := min(a.Retained(), a.Config().K())
	return accum.PreambleSize + theta.MaxCompactSize(n)
}

// Compare orders values ascending with nulls first.  Both values are
// finalized.
func (c *Codec) Compare(a, b *accum.Accumulator) int {
	return c.compare(a, b)
}

type CompareFn func(a, b *accum.Accumulator) int

// NewCompareFn returns a comparison in the given direction that places nil
// accumulators according to nulls.
func NewCompareFn(o order.Which, nulls order.Nulls) CompareFn {
	nullCmp := 1
	if nulls == order.NullsFirst {
		nullCmp = -1
	}
	return func(a, b *accum.Accumulator) int {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return nullCmp
		case b == nil:
			return -nullCmp
		}
		if o == order.Desc {
			return accum.Compare(b, a)
		}
		return accum.Compare(a, b)
	}
}
