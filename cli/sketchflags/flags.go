package sketchflags

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/brimdata/thetasketch/theta"
	"gopkg.in/yaml.v3"
)

// Flags configures the sketches a command builds or reads.  Values from a
// YAML config file are overridden by explicit -lgk and -seed flags.
type Flags struct {
	Config theta.Config

	path string
	lgK  *uint8
	seed *uint64
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "config", "", "path of sketch YAML config file")
	fs.Func("lgk", fmt.Sprintf("log2 of the nominal sketch size (default %d)", theta.DefaultLgK), func(s string) error {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return err
		}
		lgK := uint8(v)
		f.lgK = &lgK
		return nil
	})
	fs.Func("seed", fmt.Sprintf("hash seed (default %d)", theta.DefaultSeed), func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		f.seed = &v
		return nil
	})
}

// Init is called after flags have been parsed.
func (f *Flags) Init() error {
	f.Config = theta.DefaultConfig()
	if f.path != "" {
		b, err := os.ReadFile(f.path)
		if err != nil {
			return err
		}
		if err := Load(b, &f.Config); err != nil {
			return fmt.Errorf("%s: %w", f.path, err)
		}
	}
	if f.lgK != nil {
		f.Config.LgK = *f.lgK
	}
	if f.seed != nil {
		f.Config.Seed = *f.seed
	}
	return f.Config.Validate()
}

// Load decodes a YAML config document into c.  Fields absent from the
// document keep their current values and unknown fields are an error.
func Load(b []byte, c *theta.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return err
	}
	return nil
}
