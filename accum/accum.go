// Package accum implements the value held by a theta sketch column.
//
// An Accumulator is backed either by a finalized compact sketch, which is
// cheap to query, or by a union, which is cheap to merge into.  Combine always
// produces a union-backed accumulator.  The union is finalized only on demand:
// by Finalize before serialization or lazily by Estimate.  A finalized
// accumulator can still be combined; its snapshot is fed into a fresh union.
//
// Accumulators are not safe for concurrent use.  Combine takes ownership of
// both operands and any later use of them panics.
package accum

import (
	"fmt"

	"github.com/brimdata/thetasketch/theta"
)

// State identifies which representation backs an accumulator.
type State uint8

const (
	Finalized State = iota
	Accumulating
	consumed
)

func (s State) String() string {
	switch s {
	case Finalized:
		return "finalized"
	case Accumulating:
		return "accumulating"
	case consumed:
		return "consumed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Accumulator struct {
	cfg    theta.Config
	state  State
	sketch *theta.CompactSketch // valid when state is Finalized
	union  *theta.Union         // valid when state is Accumulating

	// Caches derived from the backing sketch.  They are reset whenever the
	// represented set changes.
	estimate float64
	cached   bool
	encoded  []byte
}

// New returns an empty finalized accumulator.
func New(cfg theta.Config) *Accumulator {
	return NewFinalized(cfg, theta.NewEmptyCompact(cfg))
}

func NewFinalized(cfg theta.Config, c *theta.CompactSketch) *Accumulator {
	cfg.LgK = c.LgK()
	return &Accumulator{cfg: cfg, state: Finalized, sketch: c}
}

// NewAccumulating wraps u.  The accumulator takes ownership of u.
func NewAccumulating(cfg theta.Config, u *theta.Union) *Accumulator {
	cfg.LgK = u.LgK()
	return &Accumulator{cfg: cfg, state: Accumulating, union: u}
}

func (a *Accumulator) State() State {
	return a.state
}

func (a *Accumulator) Config() theta.Config {
	return a.cfg
}

func (a *Accumulator) IsEmpty() bool {
	a.mustLive()
	if a.state == Accumulating {
		return a.union.IsEmpty()
	}
	return a.sketch.IsEmpty()
}

// Retained returns the number of hashes held by the backing sketch.
func (a *Accumulator) Retained() int {
	a.mustLive()
	if a.state == Accumulating {
		return a.union.Retained()
	}
	return a.sketch.Retained()
}

// Finalize materializes a union-backed accumulator into its compact snapshot
// and returns the snapshot.  The represented set does not change so cached
// values stay valid.
func (a *Accumulator) Finalize() *theta.CompactSketch {
	a.mustLive()
	if a.state == Accumulating {
		a.sketch = a.union.Result()
		a.union = nil
		a.state = Finalized
	}
	return a.sketch
}

func (a *Accumulator) Estimate() float64 {
	a.mustLive()
	if !a.cached {
		a.estimate = a.Finalize().Estimate()
		a.cached = true
	}
	return a.estimate
}

// LowerBound returns the lower error bound of the estimate at 1, 2, or 3
// standard deviations.
func (a *Accumulator) LowerBound(numStdDevs uint8) (float64, error) {
	return a.Finalize().LowerBound(numStdDevs)
}

// UpperBound returns the upper error bound of the estimate at 1, 2, or 3
// standard deviations.
func (a *Accumulator) UpperBound(numStdDevs uint8) (float64, error) {
	return a.Finalize().UpperBound(numStdDevs)
}

func (a *Accumulator) invalidate() {
	a.cached = false
	a.estimate = 0
	a.encoded = nil
}

// release marks a as handed off to another accumulator.
func (a *Accumulator) release() {
	a.invalidate()
	a.sketch = nil
	a.union = nil
	a.state = consumed
}

func (a *Accumulator) mustLive() {
	if a.state == consumed {
		panic("accum: use of an accumulator after it was passed to Combine")
	}
}

// snapshot returns the compact image of a without changing its state.
func (a *Accumulator) snapshot() *theta.CompactSketch {
	if a.state == Accumulating {
		return a.union.Result()
	}
	return a.sketch
}
