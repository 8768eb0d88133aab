package handle_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/fat32test"
	"github.com/sscafiti/fat32ro/internal/handle"
)

func mustMount(t *testing.T, b *fat32test.Builder) *fat32.Volume {
	t.Helper()
	vol, err := fat32.Mount(b.Build())
	require.NoError(t, err)
	return vol
}

func TestOpenDir_EntriesThenCloseDirInvalidatesHandle(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "ONE.TXT", []byte("1"))

	vol := mustMount(t, b)
	table := handle.New(vol)

	h, err := table.OpenDir(vol.Root())
	require.NoError(t, err)

	entries, err := table.Entries(h)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "ONE.TXT", entries[0].Name())

	require.NoError(t, table.CloseDir(h))

	_, err = table.Entries(h)
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindInvalidFileHandle, kind)
}

func TestHandleNumbers_AreRecycledAfterClose(t *testing.T) {
	b := fat32test.New(1, 16)
	vol := mustMount(t, b)
	table := handle.New(vol)

	h1, err := table.OpenDir(vol.Root())
	require.NoError(t, err)
	require.NoError(t, table.CloseDir(h1))

	h2, err := table.OpenDir(vol.Root())
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestReadFile_ByHandle(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "GREET.TXT", []byte("hello world"))

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/GREET.TXT")
	require.NoError(t, err)

	table := handle.New(vol)
	h, err := table.Open(entry)
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err := table.Read(h, 6, buf)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf[:n]))

	require.NoError(t, table.Close(h))

	_, err = table.Read(h, 0, buf)
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindInvalidFileHandle, kind)
}

func TestRead_NegativeOffsetReturnsEmpty(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "A.TXT", []byte("data"))

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/A.TXT")
	require.NoError(t, err)

	table := handle.New(vol)
	h, err := table.Open(entry)
	require.NoError(t, err)

	n, err := table.Read(h, -1, make([]byte, 4))
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestOpenDir_DoesNotEnumerateUntilFirstEntriesCall(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	sub := b.AddDir(root, "BAD")
	// Fill the directory's only cluster with deleted-entry slots so that
	// enumeration has to consult the FAT to move past it.
	b.WriteCluster(sub, bytes.Repeat([]byte{0xE5}, 512))
	b.MarkBad(sub)

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/BAD")
	require.NoError(t, err)

	table := handle.New(vol)

	h, err := table.OpenDir(entry)
	require.NoError(t, err, "opendir must not walk the directory's cluster chain")

	_, err = table.Entries(h)
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindBadCluster, kind)
}

func TestEntries_CachesAcrossRepeatedCalls(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "ONE.TXT", []byte("1"))

	vol := mustMount(t, b)
	table := handle.New(vol)

	h, err := table.OpenDir(vol.Root())
	require.NoError(t, err)

	first, err := table.Entries(h)
	require.NoError(t, err)

	second, err := table.Entries(h)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCloseDir_UnknownHandle(t *testing.T) {
	b := fat32test.New(1, 16)
	vol := mustMount(t, b)
	table := handle.New(vol)

	err := table.CloseDir(42)
	require.Error(t, err)
	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindInvalidFileHandle, kind)
}
