package accum

import (
	"context"
	"fmt"
	"slices"

	"github.com/brimdata/thetasketch/theta"
	"golang.org/x/sync/errgroup"
)

// Combine returns the union of a and b as an Accumulating accumulator.  Both
// operands are consumed.  A nil operand is treated as empty; if both are nil
// the result is nil.  The union is sized to the smallest lgK of the non-empty
// operands so that any reduction order over the same inputs yields the same
// sketch.  Combine panics if the operands were built with different seeds.
func Combine(a, b *Accumulator) *Accumulator {
	acc, err := Merge(a, b)
	if err != nil {
		panic(err)
	}
	return acc
}

// Merge is Combine for operands that have not been checked against each
// other.  A seed mismatch is returned as an error wrapping ErrSeedMismatch
// and leaves both operands usable.
func Merge(a, b *Accumulator) (*Accumulator, error) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil:
		a = New(b.cfg)
	case b == nil:
		b = New(a.cfg)
	}
	a.mustLive()
	b.mustLive()
	cfg := a.cfg
	if a.IsEmpty() {
		cfg.Seed = b.cfg.Seed
	}
	if !a.IsEmpty() && !b.IsEmpty() && a.cfg.SeedHash() != b.cfg.SeedHash() {
		return nil, fmt.Errorf("accum: combine: %w: seeds %d and %d", theta.ErrSeedMismatch, a.cfg.Seed, b.cfg.Seed)
	}
	cfg.LgK = unionLgK(a, b)
	var u *theta.Union
	var rest []*Accumulator
	switch {
	case reusable(a, cfg):
		u, rest = a.union, []*Accumulator{b}
	case reusable(b, cfg):
		u, rest = b.union, []*Accumulator{a}
	default:
		u, rest = theta.NewUnion(cfg), []*Accumulator{a, b}
	}
	for _, x := range rest {
		if x.state == Accumulating && x.union == u {
			// Combine(a, a): a union is idempotent with itself.
			continue
		}
		if err := u.Update(x.snapshot()); err != nil {
			return nil, fmt.Errorf("accum: combine: %w", err)
		}
	}
	a.release()
	b.release()
	return NewAccumulating(cfg, u), nil
}

func unionLgK(a, b *Accumulator) uint8 {
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return max(a.cfg.LgK, b.cfg.LgK)
	case a.IsEmpty():
		return b.cfg.LgK
	case b.IsEmpty():
		return a.cfg.LgK
	}
	return min(a.cfg.LgK, b.cfg.LgK)
}

// reusable reports whether x's union can absorb the other operand directly.
func reusable(x *Accumulator, cfg theta.Config) bool {
	return x.state == Accumulating && x.union.LgK() == cfg.LgK && x.union.SeedHash() == cfg.SeedHash()
}

// MergeAll reduces accs with Combine as a balanced binary tree.  The pairs at
// each level are combined concurrently with at most parallelism goroutines
// (no limit if parallelism <= 0).  Every accumulator in accs is consumed.
// Nil entries are skipped and MergeAll returns nil if there is nothing to
// merge.
func MergeAll(ctx context.Context, accs []*Accumulator, parallelism int) (*Accumulator, error) {
	level := slices.DeleteFunc(slices.Clone(accs), func(a *Accumulator) bool {
		return a == nil
	})
	if len(level) == 0 {
		return nil, nil
	}
	for len(level) > 1 {
		next := make([]*Accumulator, (len(level)+1)/2)
		group, gctx := errgroup.WithContext(ctx)
		if parallelism > 0 {
			group.SetLimit(parallelism)
		}
		for i := range next {
			group.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if 2*i+1 == len(level) {
					next[i] = level[2*i]
					return nil
				}
				acc, err := Merge(level[2*i], level[2*i+1])
				next[i] = acc
				return err
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		level = next
	}
	return level[0], nil
}
