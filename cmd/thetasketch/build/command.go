package build

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/cli/outputflags"
	"github.com/brimdata/thetasketch/cmd/thetasketch/root"
	"github.com/brimdata/thetasketch/ingest"
	"github.com/brimdata/thetasketch/pkg/charm"
	"github.com/brimdata/thetasketch/pkg/storage"
	"go.uber.org/zap"
)

var spec = &charm.Spec{
	Name:  "build",
	Usage: "build [options] [file ...]",
	Short: "build a theta sketch from newline-delimited values",
	Long: `
The build command reads newline-delimited values from the named files, or
from standard input if none are given, and writes the encoded theta sketch of
the distinct values.

Each line is taken as a string unless -json is set, in which case each line
is a JSON value.  A JSON array contributes each of its elements and a JSON
string holding a base64 encoded sketch is merged in as a sketch.  Lines that
hold a malformed sketch are logged and skipped.
`,
	New: New,
}

func init() {
	root.Thetasketch.Add(spec)
}

const field = "value"

type Command struct {
	*root.Command
	outputFlags outputflags.Flags
	jsonLines   bool
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.outputFlags.SetFlags(f)
	f.BoolVar(&c.jsonLines, "json", false, "parse each line as a JSON value")
	return c, nil
}

func (c *Command) Run(args []string) error {
	ctx, cleanup, err := c.Init(&c.outputFlags)
	if err != nil {
		return err
	}
	defer cleanup()
	if len(args) == 0 {
		args = []string{storage.StdioPath}
	}
	var acc *accum.Accumulator
	var rows int
	for _, path := range args {
		n, err := c.buildFile(ctx, path, &acc)
		if err != nil {
			return err
		}
		rows += n
	}
	if acc == nil {
		acc = accum.New(c.Serde.Codec.Config())
	}
	c.Logger.Info("built theta sketch",
		zap.Int("rows", rows),
		zap.Float64("estimate", acc.Estimate()),
	)
	return c.outputFlags.Write(ctx, c.Engine, c.Serde.Codec.Encode(acc))
}

func (c *Command) buildFile(ctx context.Context, path string, acc **accum.Accumulator) (int, error) {
	r, err := c.Engine.Get(ctx, path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 64*1024*1024)
	var n int
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		v, err := c.value(scanner.Bytes())
		if err != nil {
			return 0, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		next, err := c.Serde.Extractor.Extract(ingest.MapRow{field: v}, field)
		if err != nil {
			return 0, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if next != nil {
			*acc = accum.Combine(*acc, next)
		}
		n++
	}
	return n, scanner.Err()
}

func (c *Command) value(line []byte) (any, error) {
	if !c.jsonLines {
		if len(line) == 0 {
			return nil, nil
		}
		return string(line), nil
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
