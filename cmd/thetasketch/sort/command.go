package sort

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/brimdata/thetasketch/cli/inputflags"
	"github.com/brimdata/thetasketch/cmd/thetasketch/root"
	"github.com/brimdata/thetasketch/codec"
	"github.com/brimdata/thetasketch/order"
	"github.com/brimdata/thetasketch/pkg/charm"
)

var spec = &charm.Spec{
	Name:  "sort",
	Usage: "sort [options] [file ...]",
	Short: "sort encoded theta sketch values",
	Long: `
The sort command decodes every value in the named files and prints them in
column order, one per line, as the estimate followed by the value's source.
Values are ordered by estimate with ties broken by their encoded bytes.
`,
	New: New,
}

func init() {
	root.Thetasketch.Add(spec)
}

type Command struct {
	*root.Command
	inputFlags inputflags.Flags
	desc       bool
	nulls      order.Nulls
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	f.BoolVar(&c.desc, "desc", false, "sort in descending order")
	f.TextVar(&c.nulls, "nulls", order.NullsLast, "position of null values [first,last]")
	return c, nil
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
	which := order.Asc
	if c.desc {
		which = order.Desc
	}
	compare := codec.NewCompareFn(which, c.nulls)
	slices.SortStableFunc(vals, func(a, b inputflags.Value) int {
		return compare(a.Acc, b.Acc)
	})
	w := bufio.NewWriter(os.Stdout)
	for _, val := range vals {
		if val.Acc == nil {
			fmt.Fprintf(w, "null\t%s\n", val.Source)
			continue
		}
		fmt.Fprintf(w, "%g\t%s\n", val.Acc.Estimate(), val.Source)
	}
	return w.Flush()
}
