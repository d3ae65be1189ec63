package merge

import (
	"flag"
	"runtime"

	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/cli/inputflags"
	"github.com/brimdata/thetasketch/cli/outputflags"
	"github.com/brimdata/thetasketch/cmd/thetasketch/root"
	"github.com/brimdata/thetasketch/pkg/charm"
	"go.uber.org/zap"
)

var spec = &charm.Spec{
	Name:  "merge",
	Usage: "merge [options] [file ...]",
	Short: "merge encoded theta sketch values",
	Long: `
The merge command decodes every value in the named files and writes the
encoded union of them.  Null column slots are skipped.  The union is reduced
pairwise with up to -P merges running at once.
`,
	New: New,
}

func init() {
	root.Thetasketch.Add(spec)
}

type Command struct {
	*root.Command
	inputFlags  inputflags.Flags
	outputFlags outputflags.Flags
	parallelism int
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.IntVar(&c.parallelism, "P", runtime.GOMAXPROCS(0), "maximum number of concurrent merges")
	return c, nil
}

func (c *Command) Run(args []string) error {
	ctx, cleanup, err := c.Init(&c.outputFlags)
	if err != nil {
		return err
	}
	defer cleanup()
	vals, err := c.inputFlags.Read(ctx, c.Engine, c.Serde.Codec, args)
	if err != nil {
		return err
	}
	accs := make([]*accum.Accumulator, len(vals))
	for i, val := range vals {
		accs[i] = val.Acc
	}
	acc, err := accum.MergeAll(ctx, accs, c.parallelism)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = accum.New(c.Serde.Codec.Config())
	}
	c.Logger.Info("merged theta sketches",
		zap.Int("values", len(vals)),
		zap.Float64("estimate", acc.Estimate()),
	)
	return c.outputFlags.Write(ctx, c.Engine, c.Serde.Codec.Encode(acc))
}
