package inode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/inode"
)

func TestNew_RootIsPinnedAndSelfParented(t *testing.T) {
	r := inode.New()
	require.Equal(t, "/", r.Path(inode.Root))
	require.Equal(t, inode.Root, r.GetOrAssign(inode.Root, ".."))
	require.Equal(t, inode.Root, r.GetOrAssign(inode.Root, "."))
}

func TestGetOrAssign_IsIdempotent(t *testing.T) {
	r := inode.New()
	first := r.GetOrAssign(inode.Root, "foo")
	second := r.GetOrAssign(inode.Root, "foo")
	require.Equal(t, first, second)
	require.Equal(t, "/foo", r.Path(first))
}

func TestGetOrAssign_DistinctNamesGetDistinctInodes(t *testing.T) {
	r := inode.New()
	a := r.GetOrAssign(inode.Root, "a")
	b := r.GetOrAssign(inode.Root, "b")
	require.NotEqual(t, a, b)
}

func TestGetOrAssign_NestedPathAndDotDot(t *testing.T) {
	r := inode.New()
	dir := r.GetOrAssign(inode.Root, "sub")
	leaf := r.GetOrAssign(dir, "leaf.txt")

	require.Equal(t, "/sub/leaf.txt", r.Path(leaf))
	require.Equal(t, dir, r.GetOrAssign(leaf, ".."))
	require.Equal(t, inode.Root, r.GetOrAssign(dir, ".."))
}

func TestPath_UnknownInodePanics(t *testing.T) {
	r := inode.New()
	require.Panics(t, func() {
		r.Path(999)
	})
}
