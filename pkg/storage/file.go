// Package storage opens the files the command line tools read and write.
// The path "-" names standard input or standard output.
package storage

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const StdioPath = "-"

type Sizer interface {
	Size() (int64, error)
}

// Reader is an open input.  Column objects are read through io.ReaderAt.
type Reader interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Sizer
}

type FileSystem struct {
	perm   os.FileMode
	stdin  io.Reader
	stdout io.Writer

	existsMu sync.RWMutex
	exists   map[string]struct{}
}

func NewFileSystem() *FileSystem {
	return &FileSystem{
		perm:   0666,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		exists: make(map[string]struct{}),
	}
}

// Get opens path for reading.  Standard input is read to the end so it can
// support io.ReaderAt.
func (f *FileSystem) Get(ctx context.Context, path string) (Reader, error) {
	if path == StdioPath {
		b, err := io.ReadAll(f.stdin)
		if err != nil {
			return nil, err
		}
		return &memReader{bytes.NewReader(b)}, nil
	}
	r, err := os.Open(path)
	if err != nil {
		return nil, fileErr(err)
	}
	return &fileSizer{r}, nil
}

// Put opens path for writing, creating its directory if needed.
func (f *FileSystem) Put(_ context.Context, path string) (io.WriteCloser, error) {
	if path == StdioPath || path == "" {
		return nopCloser{f.stdout}, nil
	}
	if err := f.checkPath(path); err != nil {
		return nil, fileErr(err)
	}
	w, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, f.perm)
	return w, fileErr(err)
}

func (f *FileSystem) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fileErr(err)
	}
	return info.Size(), nil
}

func (f *FileSystem) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fileErr(err)
	}
	return true, nil
}

func (f *FileSystem) checkPath(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	f.existsMu.RLock()
	_, ok := f.exists[dir]
	f.existsMu.RUnlock()
	if ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f.existsMu.Lock()
	f.exists[dir] = struct{}{}
	f.existsMu.Unlock()
	return nil
}

func fileErr(err error) error {
	if os.IsNotExist(err) {
		return fs.ErrNotExist
	}
	return err
}

type fileSizer struct {
	*os.File
}

func (f *fileSizer) Size() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fileErr(err)
	}
	return info.Size(), nil
}

type memReader struct {
	*bytes.Reader
}

func (m *memReader) Size() (int64, error) {
	return m.Reader.Size(), nil
}

func (*memReader) Close() error {
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
