package pathengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comicfs/comicfs/internal/catalog"
	"github.com/comicfs/comicfs/internal/inode"
)

func newTestEngine(t *testing.T) (*Engine, *catalog.Gateway) {
	t.Helper()
	g, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return New(g), g
}

func TestResolveRootIsIdentity(t *testing.T) {
	e, _ := newTestEngine(t)
	ino, err := e.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, inode.Root, ino)
}

func TestResolveSpecialChildren(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	ino, err := e.Resolve(ctx, "comics")
	require.NoError(t, err)
	assert.Equal(t, inode.Comics, ino)

	ino, err = e.Resolve(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, inode.Tags, ino)

	_, err = e.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveFullHierarchy(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()

	c, err := g.InsertComic(ctx, "Naruto")
	require.NoError(t, err)
	ep, err := g.InsertEpisode(ctx, c.ID, "Ep01")
	require.NoError(t, err)
	f, err := g.InsertFile(ctx, ep.ID, "page.jpg")
	require.NoError(t, err)

	ino, err := e.Resolve(ctx, "comics/Naruto/Ep01/page.jpg")
	require.NoError(t, err)
	assert.Equal(t, inode.Encode(inode.File, uint64(f.ID)), ino)
}

func TestResolveMissingComponentIsNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Resolve(context.Background(), "comics/Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReverseResolveRoundTrip(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	const base = "/var/lib/comicfs/files"

	c, err := g.InsertComic(ctx, "Naruto")
	require.NoError(t, err)
	ep, err := g.InsertEpisode(ctx, c.ID, "Ep01")
	require.NoError(t, err)
	f, err := g.InsertFile(ctx, ep.ID, "page.jpg")
	require.NoError(t, err)

	fIno := inode.Encode(inode.File, uint64(f.ID))
	p, err := e.ReverseResolve(ctx, base, fIno)
	require.NoError(t, err)
	assert.Equal(t, base+"/comics/Naruto/Ep01/page.jpg", p)

	back, err := e.Resolve(ctx, p[len(base)+1:])
	require.NoError(t, err)
	assert.Equal(t, fIno, back)
}

func TestReverseResolveComicAndSpecials(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	const base = "/pool"

	c, err := g.InsertComic(ctx, "Bleach")
	require.NoError(t, err)

	p, err := e.ReverseResolve(ctx, base, inode.Encode(inode.Comic, uint64(c.ID)))
	require.NoError(t, err)
	assert.Equal(t, "/pool/comics/Bleach", p)

	p, err = e.ReverseResolve(ctx, base, inode.Comics)
	require.NoError(t, err)
	assert.Equal(t, "/pool/comics", p)

	p, err = e.ReverseResolve(ctx, base, inode.Root)
	require.NoError(t, err)
	assert.Equal(t, "/pool", p)
}

func TestResolveTargetAbsolute(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	const base = "/pool"

	_, err := g.InsertComic(ctx, "Naruto")
	require.NoError(t, err)

	rel, ok, err := e.ResolveTarget(ctx, base, inode.Tags, "/pool/comics/Naruto")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "comics/Naruto", rel)
}

func TestResolveTargetUnderTagsIsRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	const base = "/pool"

	_, ok, err := e.ResolveTarget(ctx, base, inode.Tags, "/pool/tags/favorites")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveTargetRelative(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	const base = "/pool"

	_, err := g.InsertComic(ctx, "Naruto")
	require.NoError(t, err)
	tag, err := g.InsertTag(ctx, "favorites")
	require.NoError(t, err)

	tagIno := inode.Encode(inode.Tag, uint64(tag.ID))
	rel, ok, err := e.ResolveTarget(ctx, base, tagIno, "../../comics/Naruto")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "comics/Naruto", rel)
}

func TestResolveTargetBareHierarchyRootIsRootedAtBase(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	const base = "/pool"

	_, err := g.InsertComic(ctx, "Naruto")
	require.NoError(t, err)
	tag, err := g.InsertTag(ctx, "favorites")
	require.NoError(t, err)

	tagIno := inode.Encode(inode.Tag, uint64(tag.ID))
	rel, ok, err := e.ResolveTarget(ctx, base, tagIno, "comics/Naruto")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "comics/Naruto", rel)
}
