package fs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comicfs/comicfs/internal/blobpool"
	"github.com/comicfs/comicfs/internal/catalog"
	"github.com/comicfs/comicfs/internal/inode"
	"github.com/comicfs/comicfs/internal/pathengine"
)

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	pool := blobpool.New(t.TempDir())
	paths := pathengine.New(cat)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(cat, pool, paths, "/pool", 1000, 1000, log)
}

func TestLookUpInodeSpecials(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	op := &fuseops.LookUpInodeOp{Parent: inode.Root, Name: "comics"}
	require.NoError(t, fsys.LookUpInode(ctx, op))
	assert.Equal(t, inode.Comics, op.Entry.Child)

	op = &fuseops.LookUpInodeOp{Parent: inode.Root, Name: "bogus"}
	assert.Error(t, fsys.LookUpInode(ctx, op))
}

func TestMkDirCreateWriteReadRoundTrip(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	mk1 := &fuseops.MkDirOp{Parent: inode.Comics, Name: "Naruto"}
	require.NoError(t, fsys.MkDir(ctx, mk1))
	comicIno := mk1.Entry.Child
	assert.Equal(t, inode.Comic, inode.KindOf(comicIno))

	mk2 := &fuseops.MkDirOp{Parent: comicIno, Name: "Ep01"}
	require.NoError(t, fsys.MkDir(ctx, mk2))
	epIno := mk2.Entry.Child
	assert.Equal(t, inode.Episode, inode.KindOf(epIno))

	create := &fuseops.CreateFileOp{Parent: epIno, Name: "page.jpg"}
	require.NoError(t, fsys.CreateFile(ctx, create))
	fileIno := create.Entry.Child
	assert.Equal(t, inode.File, inode.KindOf(fileIno))
	assert.EqualValues(t, 0, create.Entry.Attributes.Size)

	write := &fuseops.WriteFileOp{Inode: fileIno, Offset: 0, Data: []byte("hello\n")}
	require.NoError(t, fsys.WriteFile(ctx, write))

	read := &fuseops.ReadFileOp{Inode: fileIno, Offset: 0, Dst: make([]byte, 6)}
	require.NoError(t, fsys.ReadFile(ctx, read))
	assert.Equal(t, "hello\n", string(read.Dst[:read.BytesRead]))

	getattr := &fuseops.GetInodeAttributesOp{Inode: fileIno}
	require.NoError(t, fsys.GetInodeAttributes(ctx, getattr))
	assert.EqualValues(t, 6, getattr.Attributes.Size)
}

func TestMkDirAtRootIsForbidden(t *testing.T) {
	fsys := newTestFS(t)
	op := &fuseops.MkDirOp{Parent: inode.Root, Name: "x"}
	assert.Error(t, fsys.MkDir(context.Background(), op))
}

func TestReadOnEmptyFileReturnsNoBytes(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	mk := &fuseops.MkDirOp{Parent: inode.Comics, Name: "Naruto"}
	require.NoError(t, fsys.MkDir(ctx, mk))
	mk2 := &fuseops.MkDirOp{Parent: mk.Entry.Child, Name: "Ep01"}
	require.NoError(t, fsys.MkDir(ctx, mk2))
	create := &fuseops.CreateFileOp{Parent: mk2.Entry.Child, Name: "x"}
	require.NoError(t, fsys.CreateFile(ctx, create))

	read := &fuseops.ReadFileOp{Inode: create.Entry.Child, Offset: 0, Dst: make([]byte, 10)}
	require.NoError(t, fsys.ReadFile(ctx, read))
	assert.Equal(t, 0, read.BytesRead)
}

func TestWriteFileFirstWriteAtNonZeroOffsetLandsAtOffset(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	mk := &fuseops.MkDirOp{Parent: inode.Comics, Name: "Naruto"}
	require.NoError(t, fsys.MkDir(ctx, mk))
	mk2 := &fuseops.MkDirOp{Parent: mk.Entry.Child, Name: "Ep01"}
	require.NoError(t, fsys.MkDir(ctx, mk2))
	create := &fuseops.CreateFileOp{Parent: mk2.Entry.Child, Name: "x"}
	require.NoError(t, fsys.CreateFile(ctx, create))
	fileIno := create.Entry.Child

	write := &fuseops.WriteFileOp{Inode: fileIno, Offset: 4, Data: []byte("XYZ")}
	require.NoError(t, fsys.WriteFile(ctx, write))

	read := &fuseops.ReadFileOp{Inode: fileIno, Offset: 4, Dst: make([]byte, 3)}
	require.NoError(t, fsys.ReadFile(ctx, read))
	assert.Equal(t, "XYZ", string(read.Dst[:read.BytesRead]))
}

func TestTagSymlinkRoundTrip(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	mk := &fuseops.MkDirOp{Parent: inode.Comics, Name: "Naruto"}
	require.NoError(t, fsys.MkDir(ctx, mk))

	mktag := &fuseops.MkDirOp{Parent: inode.Tags, Name: "favorites"}
	require.NoError(t, fsys.MkDir(ctx, mktag))
	tagIno := mktag.Entry.Child

	sym := &fuseops.CreateSymlinkOp{Parent: tagIno, Name: "whatever", Target: "comics/Naruto"}
	require.NoError(t, fsys.CreateSymlink(ctx, sym))
	taggedIno := sym.Entry.Child
	assert.Equal(t, inode.Tagged, inode.KindOf(taggedIno))

	readlink := &fuseops.ReadSymlinkOp{Inode: taggedIno}
	require.NoError(t, fsys.ReadSymlink(ctx, readlink))
	assert.Equal(t, "/pool/comics/Naruto", readlink.Target)
}

func TestSymlinkUnderTagsIsForbidden(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	mktag := &fuseops.MkDirOp{Parent: inode.Tags, Name: "favorites"}
	require.NoError(t, fsys.MkDir(ctx, mktag))

	sym := &fuseops.CreateSymlinkOp{Parent: mktag.Entry.Child, Name: "x", Target: "/pool/tags/favorites"}
	assert.Error(t, fsys.CreateSymlink(ctx, sym))
}

func TestReadDirOffsetBeyondEndIsEmpty(t *testing.T) {
	fsys := newTestFS(t)
	ctx := context.Background()

	_, err := fsys.Catalog.InsertComic(ctx, "Naruto")
	require.NoError(t, err)

	open := &fuseops.OpenDirOp{Inode: inode.Comics}
	require.NoError(t, fsys.OpenDir(ctx, open))

	read := &fuseops.ReadDirOp{Inode: inode.Comics, Handle: open.Handle, Offset: 0, Dst: make([]byte, 4096)}
	require.NoError(t, fsys.ReadDir(ctx, read))
	assert.Greater(t, read.BytesRead, 0)

	read2 := &fuseops.ReadDirOp{Inode: inode.Comics, Handle: open.Handle, Offset: 1, Dst: make([]byte, 4096)}
	require.NoError(t, fsys.ReadDir(ctx, read2))
	assert.Equal(t, 0, read2.BytesRead)
}

func TestCreateFileRequiresEpisodeParent(t *testing.T) {
	fsys := newTestFS(t)
	op := &fuseops.CreateFileOp{Parent: inode.Comics, Name: "x"}
	assert.Error(t, fsys.CreateFile(context.Background(), op))
}

var _ fuseutil.FileSystem = (*FileSystem)(nil)
