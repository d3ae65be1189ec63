package inspect

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/cli/inputflags"
	"github.com/brimdata/thetasketch/cmd/thetasketch/root"
	"github.com/brimdata/thetasketch/pkg/charm"
)

var spec = &charm.Spec{
	Name:  "inspect",
	Usage: "inspect [options] [file ...]",
	Short: "describe encoded theta sketch values",
	Long: `
The inspect command decodes each value in the named files and writes one JSON
object per value describing its encoding, state, estimate, and error bounds.
Null column slots are reported with "null": true.
`,
	New: New,
}

func init() {
	root.Thetasketch.Add(spec)
}

type Command struct {
	*root.Command
	inputFlags inputflags.Flags
	stdDevs    uint
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	f.UintVar(&c.stdDevs, "stddev", 2, "number of standard deviations for error bounds [1,2,3]")
	return c, nil
}

type description struct {
	Source   string   `json:"source"`
	Null     bool     `json:"null,omitempty"`
	Size     int      `json:"size"`
	Version  int      `json:"version,omitempty"`
	Flags    []string `json:"flags,omitempty"`
	State    string   `json:"state,omitempty"`
	Empty    bool     `json:"empty"`
	LgK      uint8    `json:"lg_k,omitempty"`
	Retained int      `json:"retained"`
	Estimate float64  `json:"estimate"`
	Lower    float64  `json:"lower"`
	Upper    float64  `json:"upper"`
}

func (c *Command) Run(args []string) error {
	ctx, cleanup, err := c.Init()
	if err != nil {
		return err
	}
	defer cleanup()
	vals, err := c.inputFlags.Read(ctx, c.Engine, c.Serde.Codec, args)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, val := range vals {
		d, err := c.describe(val)
		if err != nil {
			return err
		}
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *Command) describe(val inputflags.Value) (description, error) {
	d := description{Source: val.Source, Size: val.Size}
	acc := val.Acc
	if acc == nil {
		d.Null = true
		return d, nil
	}
	// The state must be read before Estimate finalizes the accumulator.
	d.State = acc.State().String()
	d.Empty = acc.IsEmpty()
	d.LgK = acc.Config().LgK
	d.Retained = acc.Retained()
	d.Estimate = acc.Estimate()
	var err error
	if d.Lower, err = acc.LowerBound(uint8(c.stdDevs)); err != nil {
		return d, err
	}
	if d.Upper, err = acc.UpperBound(uint8(c.stdDevs)); err != nil {
		return d, err
	}
	b, err := acc.MarshalBinary()
	if err != nil {
		return d, err
	}
	d.Version = int(b[0])
	if b[1]&accum.FlagCompact != 0 {
		d.Flags = append(d.Flags, "compact")
	}
	if b[1]&accum.FlagEmpty != 0 {
		d.Flags = append(d.Flags, "empty")
	}
	return d, nil
}
