package accum

import (
	"errors"
	"fmt"
	"slices"

	"github.com/brimdata/thetasketch/theta"
)

// A serialized accumulator is a two byte preamble followed by a theta sketch
// image:
//
//	[version:1][flags:1][payload]
//
// A zero-length payload is the canonical empty accumulator.
const (
	Version = 1

	// FlagCompact marks a compact (finalized) payload.  Without it the
	// payload is a union image and decodes to an Accumulating accumulator.
	FlagCompact = 1 << 0
	// FlagEmpty marks the explicit empty sentinel.
	FlagEmpty = 1 << 1

	knownFlags = FlagCompact | FlagEmpty

	PreambleSize = 2

	// MinTextSize is the shortest decoded base64 string FromRaw treats as
	// a serialized sketch: a preamble and an empty theta image.
	MinTextSize = PreambleSize + theta.EmptySize
)

var (
	ErrMalformed           = errors.New("malformed theta sketch value")
	ErrUnrecognizedVersion = errors.New("unrecognized theta sketch serialization version")
	ErrSeedMismatch        = theta.ErrSeedMismatch
)

// MarshalBinary finalizes a and returns its canonical encoding.
func (a *Accumulator) MarshalBinary() ([]byte, error) {
	return slices.Clone(a.canonical()), nil
}

// AppendBinary finalizes a and appends its canonical encoding to b.
func (a *Accumulator) AppendBinary(b []byte) ([]byte, error) {
	return append(b, a.canonical()...), nil
}

// EncodedSize returns the length of a's encoding if it were finalized now.
// It does not change a.
func (a *Accumulator) EncodedSize() int {
	a.mustLive()
	if a.encoded != nil {
		return len(a.encoded)
	}
	c := a.snapshot()
	if c.IsEmpty() {
		return PreambleSize
	}
	return PreambleSize + c.SerializedSize()
}

func (a *Accumulator) canonical() []byte {
	a.mustLive()
	if a.encoded == nil {
		c := a.Finalize()
		if c.IsEmpty() {
			a.encoded = []byte{Version, FlagCompact | FlagEmpty}
		} else {
			b := make([]byte, 0, PreambleSize+c.SerializedSize())
			b, _ = c.AppendBinary(append(b, Version, FlagCompact))
			a.encoded = b
		}
	}
	return a.encoded
}

// Unmarshal strictly decodes a serialized accumulator.  A zero-length buffer
// or a zero-length payload yields an empty accumulator.  Decode errors wrap
// ErrUnrecognizedVersion, ErrSeedMismatch, or ErrMalformed.  The returned
// accumulator does not retain b.
func Unmarshal(cfg theta.Config, b []byte) (*Accumulator, error) {
	if len(b) == 0 {
		return New(cfg), nil
	}
	if b[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedVersion, b[0])
	}
	if len(b) < PreambleSize {
		return nil, fmt.Errorf("%w: missing flags byte", ErrMalformed)
	}
	flags := b[1]
	if flags&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrMalformed, flags)
	}
	payload := b[PreambleSize:]
	if len(payload) == 0 {
		return New(cfg), nil
	}
	if flags&FlagEmpty != 0 {
		return nil, fmt.Errorf("%w: empty value carries a %d byte payload", ErrMalformed, len(payload))
	}
	return decodePayload(cfg, payload, flags&FlagCompact != 0)
}

func decodePayload(cfg theta.Config, payload []byte, compact bool) (*Accumulator, error) {
	s, err := theta.Decode(payload, cfg.Seed)
	if err != nil {
		if errors.Is(err, theta.ErrSeedMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch s := s.(type) {
	case *theta.CompactSketch:
		if !compact {
			return nil, fmt.Errorf("%w: compact payload without the compact flag", ErrMalformed)
		}
		return NewFinalized(cfg, s), nil
	case *theta.UpdateSketch:
		if compact {
			return nil, fmt.Errorf("%w: union payload with the compact flag", ErrMalformed)
		}
		return NewAccumulating(cfg, theta.NewUnionFrom(s)), nil
	}
	return nil, fmt.Errorf("%w: unexpected sketch %T", ErrMalformed, s)
}

// looksSerialized reports whether b starts like a serialized accumulator or
// a bare theta sketch image.
func looksSerialized(b []byte) bool {
	switch {
	case len(b) >= PreambleSize && b[0] == Version:
		return b[1]&^knownFlags == 0
	case len(b) >= theta.EmptySize && b[0] == theta.SerialVersion:
		return true
	}
	return false
}
