package accum

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/brimdata/thetasketch/theta"
	"github.com/spf13/cast"
	"golang.org/x/exp/constraints"
)

// UnsupportedShapeError reports a raw value that cannot represent a theta
// sketch column value at all, which points at a schema or configuration
// mistake rather than bad data.
type UnsupportedShapeError struct {
	Value any
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("cannot build a theta sketch from a value of type %T", e.Value)
}

// FromRaw converts a raw ingested value into an accumulator.
//
// A nil value yields a nil accumulator.  Byte slices are serialized sketches.
// A string is a serialized sketch if it is base64 that decodes to at least
// MinTextSize bytes shaped like one, and a scalar otherwise, so short base64
// text such as "AQE=" is hashed as a value.  An empty sketch is therefore
// never recognized in text form.  Other scalars and slices of scalars are
// hashed into a new sketch.  Accumulators and theta sketches are passed
// through after their seed is checked.
//
// If a serialized sketch cannot be decoded, FromRaw returns an empty
// accumulator together with an error wrapping ErrMalformed; callers at
// ingestion time log it and keep the accumulator.  An *UnsupportedShapeError
// or an error wrapping ErrSeedMismatch comes with a nil accumulator.
func FromRaw(cfg theta.Config, v any) (*Accumulator, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case *Accumulator:
		if v == nil {
			return nil, nil
		}
		if !v.IsEmpty() && v.cfg.SeedHash() != cfg.SeedHash() {
			return nil, fmt.Errorf("%w: accumulator seed %d, column seed %d", ErrSeedMismatch, v.cfg.Seed, cfg.Seed)
		}
		return v, nil
	case *theta.CompactSketch:
		return fromSketch(cfg, v)
	case *theta.UpdateSketch:
		return fromSketch(cfg, v.Compact())
	case *theta.Union:
		return fromSketch(cfg, v.Result())
	case []byte:
		return fromBytes(cfg, v)
	case string:
		if b, err := base64.StdEncoding.DecodeString(v); err == nil && len(b) >= MinTextSize && looksSerialized(b) {
			return fromBytes(cfg, b)
		}
	}
	s := theta.NewUpdateSketch(cfg)
	if err := updateShape(s, v); err != nil {
		return nil, err
	}
	return NewFinalized(cfg, s.Compact()), nil
}

func fromSketch(cfg theta.Config, c *theta.CompactSketch) (*Accumulator, error) {
	if !c.IsEmpty() && c.SeedHash() != cfg.SeedHash() {
		return nil, fmt.Errorf("%w: sketch seed hash %d, column seed hash %d", ErrSeedMismatch, c.SeedHash(), cfg.SeedHash())
	}
	return NewFinalized(cfg, c), nil
}

func fromBytes(cfg theta.Config, b []byte) (*Accumulator, error) {
	acc, err := deserialize(cfg, b)
	if errors.Is(err, ErrSeedMismatch) {
		return nil, err
	}
	if err != nil {
		if !errors.Is(err, ErrMalformed) {
			err = fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return New(cfg), err
	}
	return acc, nil
}

// deserialize accepts both a serialized accumulator and a bare theta sketch
// image, which other producers write.
func deserialize(cfg theta.Config, b []byte) (*Accumulator, error) {
	if len(b) > 0 && b[0] == theta.SerialVersion {
		return decodePayload(cfg, b, len(b) > 1 && b[1] == theta.FamilyCompact)
	}
	return Unmarshal(cfg, b)
}

func updateShape(s *theta.UpdateSketch, v any) error {
	if rv := reflect.ValueOf(v); isSequence(v, rv) {
		for i := range rv.Len() {
			elem := rv.Index(i).Interface()
			if elem == nil {
				continue
			}
			if isSequence(elem, reflect.ValueOf(elem)) {
				return &UnsupportedShapeError{Value: v}
			}
			if err := updateScalar(s, elem); err != nil {
				return err
			}
		}
		return nil
	}
	return updateScalar(s, v)
}

// isSequence reports whether v is a slice or array other than a byte slice,
// which is a single scalar when it appears inside a sequence.
func isSequence(v any, rv reflect.Value) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	k := rv.Kind()
	return k == reflect.Slice || k == reflect.Array
}

func updateScalar(s *theta.UpdateSketch, v any) error {
	switch v := v.(type) {
	case string:
		s.UpdateString(v)
	case []byte:
		s.UpdateBytes(v)
	case int:
		updateSigned(s, v)
	case int8:
		updateSigned(s, v)
	case int16:
		updateSigned(s, v)
	case int32:
		updateSigned(s, v)
	case int64:
		updateSigned(s, v)
	case uint:
		updateUnsigned(s, v)
	case uint8:
		updateUnsigned(s, v)
	case uint16:
		updateUnsigned(s, v)
	case uint32:
		updateUnsigned(s, v)
	case uint64:
		updateUnsigned(s, v)
	case float32:
		updateFloat(s, v)
	case float64:
		updateFloat(s, v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			s.UpdateInt64(i)
		} else if f, err := v.Float64(); err == nil {
			s.UpdateFloat64(f)
		} else {
			s.UpdateString(v.String())
		}
	default:
		// Booleans, Stringers, errors and the like hash as their text.
		str, err := cast.ToStringE(v)
		if err != nil {
			return &UnsupportedShapeError{Value: v}
		}
		s.UpdateString(str)
	}
	return nil
}

func updateSigned[T constraints.Signed](s *theta.UpdateSketch, v T) {
	s.UpdateInt64(int64(v))
}

func updateUnsigned[T constraints.Unsigned](s *theta.UpdateSketch, v T) {
	s.UpdateUint64(uint64(v))
}

func updateFloat[T constraints.Float](s *theta.UpdateSketch, v T) {
	s.UpdateFloat64(float64(v))
}
