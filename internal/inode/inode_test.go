package inode

import (
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		id   uint64
	}{
		{Comic, 1},
		{Episode, 42},
		{File, 1 << 40},
		{Tag, 7},
		{Tagged, 0},
	}

	for _, c := range cases {
		ino := Encode(c.kind, c.id)
		assert.Equal(t, c.kind, KindOf(ino))
		assert.Equal(t, c.id, IDOf(ino))
	}
}

func TestSpecialInodesAreClassifiedAsSpecial(t *testing.T) {
	for _, ino := range []fuseops.InodeID{Root, Comics, Tags} {
		assert.Equal(t, Special, KindOf(ino))
		assert.Equal(t, uint64(ino), IDOf(ino))
	}
}

func TestEncodePanicsOnOversizedID(t *testing.T) {
	require.Panics(t, func() {
		Encode(Comic, uint64(1)<<60)
	})
}

func TestEncodePanicsOnSpecialKind(t *testing.T) {
	require.Panics(t, func() {
		Encode(Special, 1)
	})
}

func TestKindsAreDisjoint(t *testing.T) {
	comic := Encode(Comic, 5)
	episode := Encode(Episode, 5)
	file := Encode(File, 5)
	tag := Encode(Tag, 5)
	tagged := Encode(Tagged, 5)

	seen := map[fuseops.InodeID]bool{}
	for _, ino := range []fuseops.InodeID{comic, episode, file, tag, tagged, Root, Comics, Tags} {
		assert.False(t, seen[ino], "inode %d aliased across kinds", ino)
		seen[ino] = true
	}
}
