package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/fat32test"
)

func TestParseBPB_ValidImage(t *testing.T) {
	b := fat32test.New(1, 16)
	img := b.Build()

	var sector0 [512]byte
	_, err := img.ReadAt(sector0[:], 0)
	require.NoError(t, err)

	bpb, err := fat32.ParseBPB(sector0[:])
	require.NoError(t, err)
	require.Equal(t, uint32(512), bpb.BytesPerSector())
	require.Equal(t, uint32(512), bpb.BytesPerCluster())
	require.Equal(t, b.RootCluster(), bpb.RootCluster())
}

func TestParseBPB_WrongLength(t *testing.T) {
	_, err := fat32.ParseBPB(make([]byte, 100))
	require.Error(t, err)

	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindInvalidBPB, kind)
}

func TestParseBPB_BadSignature(t *testing.T) {
	b := fat32test.New(1, 16)
	img := b.Build()

	var sector0 [512]byte
	_, err := img.ReadAt(sector0[:], 0)
	require.NoError(t, err)

	sector0[510], sector0[511] = 0x00, 0x00 // corrupt the 0xAA55 trailer

	_, err = fat32.ParseBPB(sector0[:])
	require.Error(t, err)

	kind, ok := fat32.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fat32.KindInvalidBPB, kind)
}

func TestParseBPB_RejectsFAT16RootEntryCount(t *testing.T) {
	b := fat32test.New(1, 16)
	img := b.Build()

	var sector0 [512]byte
	_, err := img.ReadAt(sector0[:], 0)
	require.NoError(t, err)

	sector0[17] = 0x01 // BPB_RootEntCnt low byte, must be 0 for FAT32

	_, err = fat32.ParseBPB(sector0[:])
	require.Error(t, err)
}

func TestMount_ValidatesSectorZero(t *testing.T) {
	b := fat32test.New(2, 32)
	img := b.Build()

	vol, err := fat32.Mount(img)
	require.NoError(t, err)
	require.Equal(t, uint32(1024), vol.BPB().BytesPerCluster())
	require.True(t, vol.Root().IsDir())
}
