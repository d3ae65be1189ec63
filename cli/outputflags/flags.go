package outputflags

import (
	"context"
	"encoding/base64"
	"flag"
	"os"

	"github.com/brimdata/thetasketch/pkg/storage"
	"golang.org/x/term"
)

type Flags struct {
	outputFile  string
	b64         bool
	forceBinary bool
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.outputFile, "o", "", "write output to file")
	fs.BoolVar(&f.b64, "b64", false, "write base64 text instead of binary")
	fs.BoolVar(&f.forceBinary, "B", false, "allow binary output to be sent to a terminal")
}

// Init is called after flags have been parsed.  Binary output headed for a
// terminal is written as base64 unless -B is set.
func (f *Flags) Init() error {
	if f.outputFile == storage.StdioPath {
		f.outputFile = ""
	}
	if f.outputFile == "" && !f.b64 && !f.forceBinary && term.IsTerminal(int(os.Stdout.Fd())) {
		f.b64 = true
	}
	return nil
}

func (f *Flags) FileName() string {
	return f.outputFile
}

func (f *Flags) Base64() bool {
	return f.b64
}

// Write writes b as the entire output.
func (f *Flags) Write(ctx context.Context, engine *storage.FileSystem, b []byte) error {
	w, err := engine.Put(ctx, f.outputFile)
	if err != nil {
		return err
	}
	if f.b64 {
		b = append(base64.StdEncoding.AppendEncode(nil, b), '\n')
	}
	_, err = w.Write(b)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return err
}
