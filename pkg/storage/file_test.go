package storage

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutCreatesDirectory(t *testing.T) {
	e := NewFileSystem()
	path := filepath.Join(t.TempDir(), "a", "b", "value.tsk")
	w, err := e.Put(t.Context(), path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ok, err := e.Exists(t.Context(), path)
	require.NoError(t, err)
	require.True(t, ok)
	size, err := e.Size(t.Context(), path)
	require.NoError(t, err)
	require.EqualValues(t, 5, size)

	r, err := e.Get(t.Context(), path)
	require.NoError(t, err)
	defer r.Close()
	buf := make([]byte, 3)
	_, err = r.ReadAt(buf, 2)
	require.NoError(t, err)
	require.Equal(t, "llo", string(buf))
}

func TestGetMissingFile(t *testing.T) {
	_, err := NewFileSystem().Get(t.Context(), filepath.Join(t.TempDir(), "nope"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestStdio(t *testing.T) {
	e := NewFileSystem()
	e.stdin = strings.NewReader("from stdin")
	var stdout bytes.Buffer
	e.stdout = &stdout

	r, err := e.Get(t.Context(), StdioPath)
	require.NoError(t, err)
	size, err := r.Size()
	require.NoError(t, err)
	require.EqualValues(t, 10, size)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "from stdin", string(b))
	require.NoError(t, r.Close())

	w, err := e.Put(t.Context(), StdioPath)
	require.NoError(t, err)
	_, err = w.Write([]byte("out"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, "out", stdout.String())
}
