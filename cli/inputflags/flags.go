package inputflags

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"

	"github.com/brimdata/thetasketch/accum"
	"github.com/brimdata/thetasketch/codec"
	"github.com/brimdata/thetasketch/pkg/storage"
)

const (
	FormatBinary = "binary"
	FormatBase64 = "b64"
)

type Flags struct {
	format string
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.format, "i", FormatBinary, "format of input values [binary,b64]")
}

// Value is one stored sketch.  A nil Acc is a null column slot.
type Value struct {
	Source string
	Size   int
	Acc    *accum.Accumulator
}

// Read decodes every value in paths, reading standard input if paths is
// empty.  A binary input is either a single encoded value or a column
// object.  Decoding is strict.
func (f *Flags) Read(ctx context.Context, engine *storage.FileSystem, c *codec.Codec, paths []string) ([]Value, error) {
	var b64 bool
	switch f.format {
	case "", FormatBinary:
	case FormatBase64:
		b64 = true
	default:
		return nil, fmt.Errorf("unknown input format: %s", f.format)
	}
	if len(paths) == 0 {
		paths = []string{storage.StdioPath}
	}
	var vals []Value
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := engine.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		var vs []Value
		if b64 {
			vs, err = readBase64(c, path, r)
		} else {
			vs, err = readBinary(c, path, r)
		}
		r.Close()
		if err != nil {
			return nil, err
		}
		vals = append(vals, vs...)
	}
	return vals, nil
}

func readBinary(c *codec.Codec, path string, r storage.Reader) ([]Value, error) {
	var magic [4]byte
	n, err := r.ReadAt(magic[:], 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if codec.IsColumn(magic[:n]) {
		return readColumn(c, path, r)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeBlob(c, path, b)
}

func readBase64(c *codec.Codec, path string, r io.Reader) ([]Value, error) {
	var vals []Value
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 64*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		b, err := base64.StdEncoding.AppendDecode(nil, text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		vs, err := decodeBlob(c, fmt.Sprintf("%s:%d", path, line), b)
		if err != nil {
			return nil, err
		}
		vals = append(vals, vs...)
	}
	return vals, scanner.Err()
}

func decodeBlob(c *codec.Codec, source string, b []byte) ([]Value, error) {
	if codec.IsColumn(b) {
		return readColumn(c, source, bytes.NewReader(b))
	}
	acc, err := c.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return []Value{{Source: source, Size: len(b), Acc: acc}}, nil
}

func readColumn(c *codec.Codec, source string, r io.ReaderAt) ([]Value, error) {
	col, err := codec.NewColumnReader(c, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	vals := make([]Value, col.Len())
	for i := range vals {
		acc, err := col.Value(i)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		vals[i] = Value{
			Source: fmt.Sprintf("%s[%d]", source, i),
			Size:   col.ValueSize(i),
			Acc:    acc,
		}
	}
	return vals, nil
}
