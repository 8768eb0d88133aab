package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/fat32test"
)

func TestResolveByPath_NestedDirectories(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	sub := b.AddDir(root, "SUB")
	b.AddFile(sub, "LEAF.TXT", []byte("hello"))

	vol := mustMount(t, b)

	entry, err := vol.ResolveByPath("/SUB/LEAF.TXT")
	require.NoError(t, err)
	require.Equal(t, "LEAF.TXT", entry.Name())
	require.False(t, entry.IsDir())

	buf := make([]byte, 5)
	n, err := vol.ReadFile(entry, 0, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestResolveByPath_ComponentIsNotADirectory(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "FILE.TXT", []byte("x"))

	vol := mustMount(t, b)

	_, err := vol.ResolveByPath("/FILE.TXT/NOPE")
	require.Error(t, err)

	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindNotADir, kind)
}

func TestResolveByPath_NotFound(t *testing.T) {
	b := fat32test.New(1, 16)
	vol := mustMount(t, b)

	_, err := vol.ResolveByPath("/MISSING.TXT")
	require.Error(t, err)

	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindNotFound, kind)
}

func TestListDir_ReconstructsLongNames(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "a rather long file name.txt", []byte("data"))

	vol := mustMount(t, b)

	entries, err := vol.ListDir(vol.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a rather long file name.txt", entries[0].Name())
}

func TestListDir_FiltersVolumeLabelButLookupStillSeesIt(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "VISIBLE.TXT", []byte("x"))
	b.AddVolumeLabel(root, "MYVOLUME")

	vol := mustMount(t, b)

	entries, err := vol.ListDir(vol.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "VISIBLE.TXT", entries[0].Name())

	label, err := vol.ResolveByPath("/MYVOLUME")
	require.NoError(t, err)
	require.True(t, label.IsVolumeID())
}

func TestReadFile_ClampsToFileSize(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "SMALL.TXT", []byte("abc"))

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/SMALL.TXT")
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := vol.ReadFile(entry, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(buf[:n]))
}

func TestReadFile_OffsetAtOrPastEndReturnsZero(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	b.AddFile(root, "SMALL.TXT", []byte("abc"))

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/SMALL.TXT")
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := vol.ReadFile(entry, 3, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = vol.ReadFile(entry, 50, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestReadFile_SlackClustersNeverSurfaceCorruption(t *testing.T) {
	// A chain longer than the size requires is permitted (spec.md §9):
	// slack bytes are simply never read.
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	content := []byte("only about one hundred bytes of real content, the rest of this cluster and the whole next one are slack")
	first := b.AddFile(root, "SLACK.BIN", content)
	b.Chain(first, b.AddDir(root, "UNUSED")) // chain continues one cluster past what size needs

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/SLACK.BIN")
	require.NoError(t, err)

	buf := make([]byte, len(content))
	n, err := vol.ReadFile(entry, 0, buf)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.Equal(t, content, buf[:n])
}
