package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/fat32test"
)

func TestClassifyFAT(t *testing.T) {
	cases := []struct {
		name  string
		value uint32
		want  fat32.FATClass
	}{
		{"free", 0x00000000, fat32.FATFree},
		{"reserved", 0x00000001, fat32.FATReserved},
		{"bad", 0x0FFFFFF7, fat32.FATBad},
		{"eoc-low", 0x0FFFFFF8, fat32.FATEOC},
		{"eoc-high", 0x0FFFFFFF, fat32.FATEOC},
		{"next", 0x00000005, fat32.FATNext},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			class, _ := fat32.ClassifyFAT(c.value)
			require.Equal(t, c.want, class)
		})
	}
}

func TestChainWalker_WalksFullChain(t *testing.T) {
	b := fat32test.New(1, 16)
	c1 := b.RootCluster()
	// The root directory stays a single cluster; the file's 1024 bytes need
	// a two-cluster chain (content irrelevant to this test).
	extra := b.AddFile(c1, "A.TXT", make([]byte, 1024)) // spans two clusters

	vol := mustMount(t, b)

	n, err := vol.NClusters(vol.Root())
	require.NoError(t, err)
	require.Equal(t, uint64(1), n) // root itself is a single cluster here

	fileEntry, err := vol.ResolveByPath("/A.TXT")
	require.NoError(t, err)
	require.Equal(t, extra, fileEntry.FirstCluster)

	fn, err := vol.NClusters(fileEntry)
	require.NoError(t, err)
	require.Equal(t, uint64(2), fn)
}

func TestChainWalker_TerminatesOnTruncatedChain(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	content := make([]byte, 1024) // two clusters
	first := b.AddFile(root, "BIG.BIN", content)

	// Truncate the chain so it ends after only one cluster, even though the
	// recorded size still claims two.
	b.Truncate(first)

	vol := mustMount(t, b)

	entry, err := vol.ResolveByPath("/BIG.BIN")
	require.NoError(t, err)

	buf := make([]byte, len(content))
	_, err = vol.ReadFile(entry, 0, buf)
	require.Error(t, err)

	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindFileCorrupt, kind)
}

func TestChainWalker_BadClusterError(t *testing.T) {
	b := fat32test.New(1, 16)
	root := b.RootCluster()
	first := b.AddFile(root, "BAD.BIN", make([]byte, 1024))
	b.MarkBad(first)

	vol := mustMount(t, b)
	entry, err := vol.ResolveByPath("/BAD.BIN")
	require.NoError(t, err)

	buf := make([]byte, 2048)
	_, err = vol.ReadFile(entry, 0, buf)
	require.Error(t, err)

	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindBadCluster, kind)
}

func mustMount(t *testing.T, b *fat32test.Builder) *fat32.Volume {
	t.Helper()
	vol, err := fat32.Mount(b.Build())
	require.NoError(t, err)
	return vol
}
