package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_WriteRead(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "reports/demo/log.xml")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "reports/demo/log.xml", []byte("<phpundercontrol/>")))

	ok, err = s.Exists(ctx, "reports/demo/log.xml")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Read(ctx, "reports/demo/log.xml")
	require.NoError(t, err)
	assert.Equal(t, "<phpundercontrol/>", string(data))
}

func TestLocalStorage_ReadMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "missing.xml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_StaysInsideBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(base, "store"))
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "../escape.xml", []byte("x")))
	_, err = os.Stat(filepath.Join(base, "escape.xml"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "store", "escape.xml"))
	assert.NoError(t, err)
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
