package order

import (
	"fmt"
	"strings"
)

// Nulls represents the position of nulls in an ordering of values.
type Nulls bool

const (
	NullsLast  Nulls = false
	NullsFirst Nulls = true
)

func ParseNulls(s string) (Nulls, error) {
	switch strings.ToLower(s) {
	case "first":
		return NullsFirst, nil
	case "last":
		return NullsLast, nil
	default:
		return false, fmt.Errorf("unknown nulls position: %s", s)
	}
}

func (n Nulls) String() string {
	if n == NullsFirst {
		return "first"
	}
	return "last"
}

func (n Nulls) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Nulls) UnmarshalText(b []byte) error {
	nulls, err := ParseNulls(string(b))
	if err != nil {
		return err
	}
	*n = nulls
	return nil
}
