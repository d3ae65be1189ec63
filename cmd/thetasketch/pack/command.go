package pack

import (
	"bytes"
	"flag"

	"github.com/brimdata/thetasketch/cli/inputflags"
	"github.com/brimdata/thetasketch/cli/outputflags"
	"github.com/brimdata/thetasketch/cmd/thetasketch/root"
	"github.com/brimdata/thetasketch/codec"
	"github.com/brimdata/thetasketch/pkg/charm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var spec = &charm.Spec{
	Name:  "pack",
	Usage: "pack [options] [file ...]",
	Short: "write encoded theta sketch values as a column object",
	Long: `
The pack command decodes every value in the named files, in order, and writes
them as a single column object.  Null slots of input column objects stay null.
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
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
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
	w := codec.NewColumnWriter(c.Serde.Codec)
	for _, val := range vals {
		w.Write(val.Acc)
	}
	group, _ := errgroup.WithContext(ctx)
	w.Encode(group)
	if err := group.Wait(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := w.Emit(&buf); err != nil {
		return err
	}
	c.Logger.Info("packed theta sketch column",
		zap.Int("values", w.Len()),
		zap.Int("size", buf.Len()),
	)
	return c.outputFlags.Write(ctx, c.Engine, buf.Bytes())
}
