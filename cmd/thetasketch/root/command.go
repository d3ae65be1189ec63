package root

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/brimdata/thetasketch/cli/logflags"
	"github.com/brimdata/thetasketch/cli/sketchflags"
	"github.com/brimdata/thetasketch/complextype"
	"github.com/brimdata/thetasketch/pkg/charm"
	"github.com/brimdata/thetasketch/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

var Thetasketch = &charm.Spec{
	Name:  "thetasketch",
	Usage: "thetasketch [options] <command> [options] [arguments...]",
	Short: "build, inspect, merge, and sort theta sketch column values",
	Long: `
The "thetasketch" command works with the stored values of a theta sketch
column.  A theta sketch estimates the number of distinct values in a stream
and can be merged with other sketches built with the same seed.

Values are read from files or from standard input ("-").  A binary input is
either a single encoded value or a column object written by "pack".  With
"-i b64", inputs are base64 text with one value per line.  Binary output
headed for a terminal is written as base64.

The sketch size and hash seed are taken from the -config YAML file, e.g.,

  lg_k: 14
  seed: 9001

and may be overridden with -lgk and -seed.  Sketches built with different
seeds cannot be merged.
`,
	New: New,
}

// Initializer is implemented by flag sets that need work after parsing.
type Initializer interface {
	Init() error
}

type Command struct {
	logFlags    logflags.Flags
	sketchFlags sketchflags.Flags

	Engine *storage.FileSystem
	Logger *zap.Logger
	Serde  *complextype.Serde

	metrics *prometheus.Registry
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{}
	c.logFlags.SetFlags(f)
	c.sketchFlags.SetFlags(f)
	return c, nil
}

// Init readies the command for a run: it initializes flags, opens the
// logger, and registers the theta sketch column type.  The returned context
// is canceled on interrupt.
func (c *Command) Init(all ...Initializer) (context.Context, func(), error) {
	if err := c.sketchFlags.Init(); err != nil {
		return nil, nil, err
	}
	for _, flags := range all {
		if err := flags.Init(); err != nil {
			return nil, nil, err
		}
	}
	logger, err := c.logFlags.Open()
	if err != nil {
		return nil, nil, err
	}
	c.metrics = prometheus.NewRegistry()
	serde, err := complextype.New(c.sketchFlags.Config, logger, c.metrics)
	if err != nil {
		return nil, nil, err
	}
	var registry complextype.MapRegistry
	if err := complextype.Register(&registry, serde); err != nil {
		return nil, nil, err
	}
	c.Serde, _ = registry.Lookup(complextype.TypeName)
	c.Engine = storage.NewFileSystem()
	c.Logger = logger
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	cleanup := func() {
		c.logMetrics()
		logger.Sync()
		cancel()
	}
	return ctx, cleanup, nil
}

func (c *Command) Run(args []string) error {
	return charm.NoRun(args)
}

func (c *Command) logMetrics() {
	families, err := c.metrics.Gather()
	if err != nil {
		c.Logger.Warn("gathering metrics", zap.Error(err))
		return
	}
	for _, family := range families {
		c.Logger.Info("metrics", counterFields(family)...)
	}
}

func counterFields(family *dto.MetricFamily) []zap.Field {
	fields := []zap.Field{zap.String("name", family.GetName())}
	for _, m := range family.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		key := family.GetName()
		for _, label := range m.GetLabel() {
			key = label.GetValue()
		}
		fields = append(fields, zap.Float64(key, m.GetCounter().GetValue()))
	}
	return fields
}
