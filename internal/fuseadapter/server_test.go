package fuseadapter_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/fat32test"
	"github.com/sscafiti/fat32ro/internal/fuseadapter"
	"github.com/sscafiti/fat32ro/internal/inode"
)

func newServer(t *testing.T, build func(b *fat32test.Builder)) *fuseadapter.Server {
	t.Helper()
	b := fat32test.New(1, 16)
	build(b)

	vol, err := fat32.Mount(b.Build())
	require.NoError(t, err)

	return fuseadapter.New(vol, fuseadapter.Config{UID: 1000, GID: 1000, Perm: 0o644})
}

func TestLookup_AssignsStableInode(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {
		b.AddFile(b.RootCluster(), "FILE.TXT", []byte("hi"))
	})

	ino1, attr1, err := srv.Lookup(inode.Root, "FILE.TXT")
	require.NoError(t, err)
	require.False(t, attr1.IsDir)
	require.Equal(t, uint64(2), attr1.Size)

	ino2, _, err := srv.Lookup(inode.Root, "FILE.TXT")
	require.NoError(t, err)
	require.Equal(t, ino1, ino2)
}

func TestLookup_MissingNameIsNotFound(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {})

	_, _, err := srv.Lookup(inode.Root, "NOPE.TXT")
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindNotFound, kind)
}

func TestGetattr_Root(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {})

	attr, err := srv.Getattr(inode.Root)
	require.NoError(t, err)
	require.True(t, attr.IsDir)
	require.Equal(t, inode.Root, attr.Inode)
}

func TestOpendirReaddirReleasedir(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {
		root := b.RootCluster()
		b.AddFile(root, "A.TXT", []byte("a"))
		b.AddDir(root, "SUB")
	})

	h, err := srv.Opendir(inode.Root, fuseadapter.AccessFlags{})
	require.NoError(t, err)

	entries, err := srv.Readdir(inode.Root, h)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
	}
	require.True(t, names["."])
	require.True(t, names[".."])
	require.True(t, names["A.TXT"])
	require.True(t, names["SUB"])
	require.Len(t, entries, 4)

	require.NoError(t, srv.Releasedir(h))
}

func TestOpendir_RejectsNonDirectory(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {
		b.AddFile(b.RootCluster(), "FILE.TXT", []byte("x"))
	})

	ino, _, err := srv.Lookup(inode.Root, "FILE.TXT")
	require.NoError(t, err)

	_, err = srv.Opendir(ino, fuseadapter.AccessFlags{})
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindNotADir, kind)
}

func TestOpen_RejectsDirectory(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {})

	_, err := srv.Open(inode.Root, fuseadapter.AccessFlags{})
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindIsDir, kind)
}

func TestOpen_RejectsWriteAccess(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {
		b.AddFile(b.RootCluster(), "FILE.TXT", []byte("x"))
	})

	ino, _, err := srv.Lookup(inode.Root, "FILE.TXT")
	require.NoError(t, err)

	_, err = srv.Open(ino, fuseadapter.AccessFlags{WriteOnly: true})
	require.ErrorIs(t, err, fuseadapter.ErrAccessDenied)

	_, err = srv.Open(ino, fuseadapter.AccessFlags{ReadWrite: true})
	require.ErrorIs(t, err, fuseadapter.ErrAccessDenied)

	_, err = srv.Open(ino, fuseadapter.AccessFlags{Truncate: true})
	require.ErrorIs(t, err, fuseadapter.ErrAccessDenied)
}

func TestOpenReadRelease(t *testing.T) {
	srv := newServer(t, func(b *fat32test.Builder) {
		b.AddFile(b.RootCluster(), "GREET.TXT", []byte("hello world"))
	})

	ino, _, err := srv.Lookup(inode.Root, "GREET.TXT")
	require.NoError(t, err)

	h, err := srv.Open(ino, fuseadapter.AccessFlags{})
	require.NoError(t, err)

	data, err := srv.Read(h, 0, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	data, err = srv.Read(h, 6, 100)
	require.NoError(t, err)
	require.Equal(t, "world", string(data))

	require.NoError(t, srv.Release(h))
}

func TestNew_ServesGetattrOnFourSectorClusterVolume(t *testing.T) {
	b := fat32test.New(4, 16) // 4 sectors/cluster = 2048 bytes/cluster
	vol, err := fat32.Mount(b.Build())
	require.NoError(t, err)

	srv := fuseadapter.New(vol, fuseadapter.Config{Perm: os.FileMode(0o644)})
	attr, err := srv.Getattr(inode.Root)
	require.NoError(t, err)
	require.True(t, attr.IsDir)
}
