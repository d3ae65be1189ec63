package order

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Which bool

const (
	Asc  Which = false
	Desc Which = true
)

func Parse(s string) (Which, error) {
	switch strings.ToLower(s) {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return false, fmt.Errorf("unknown order: %s", s)
	}
}

func (w Which) String() string {
	if w == Desc {
		return "desc"
	}
	return "asc"
}

func (w Which) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

func (w *Which) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	which, err := Parse(s)
	if err != nil {
		return err
	}
	*w = which
	return nil
}

func (w Which) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *Which) UnmarshalText(b []byte) error {
	which, err := Parse(string(b))
	if err != nil {
		return err
	}
	*w = which
	return nil
}
