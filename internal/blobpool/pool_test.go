package blobpool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	dir := t.TempDir()
	return New(dir)
}

func TestStoreAndOpenForRead(t *testing.T) {
	p := newTestPool(t)

	hash, err := p.Store([]byte("hello comic"))
	require.NoError(t, err)
	assert.Len(t, hash, HashLen)

	f, err := p.OpenForRead(hash)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, len("hello comic"))
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello comic", string(buf[:n]))
}

func TestStoreIsContentAddressed(t *testing.T) {
	p := newTestPool(t)

	h1, err := p.Store([]byte("same bytes"))
	require.NoError(t, err)
	h2, err := p.Store([]byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := p.Store([]byte("different bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestPathOfIsShardedByPrefix(t *testing.T) {
	p := newTestPool(t)
	hash, err := p.Store([]byte("payload"))
	require.NoError(t, err)

	want := filepath.Join(p.Base, hash[:2], hash)
	assert.Equal(t, want, p.PathOf(hash))
	_, err = os.Stat(want)
	assert.NoError(t, err)
}

func TestOpenForReadMissingBlobIsNotExist(t *testing.T) {
	p := newTestPool(t)
	_, err := p.OpenForRead("0000000000000000000000000000000000000000000000000000000000000a")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenForWriteAtOffset(t *testing.T) {
	p := newTestPool(t)
	hash, err := p.Store([]byte("0123456789"))
	require.NoError(t, err)

	f, err := p.OpenForWrite(hash)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("XYZ"), 4)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f2, err := p.OpenForRead(hash)
	require.NoError(t, err)
	defer f2.Close()
	buf := make([]byte, 10)
	_, err = f2.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123XYZ789", string(buf))
}

func TestTruncateAndStat(t *testing.T) {
	p := newTestPool(t)
	hash, err := p.Store([]byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, p.Truncate(hash, 4))

	meta, err := p.Stat(hash)
	require.NoError(t, err)
	assert.EqualValues(t, 4, meta.Size)
}

func TestExists(t *testing.T) {
	p := newTestPool(t)
	assert.False(t, p.Exists("deadbeef"))

	hash, err := p.Store([]byte("x"))
	require.NoError(t, err)
	assert.True(t, p.Exists(hash))
}
