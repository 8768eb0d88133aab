package partition_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sscafiti/fat32ro/internal/partition"
)

func buildMBR(entries ...partition.Entry) []byte {
	sector := make([]byte, 512)
	for i, e := range entries {
		raw := sector[0x1BE+i*16:]
		if e.Bootable {
			raw[0x00] = 0x80
		}
		raw[0x04] = byte(e.Type)
		binary.LittleEndian.PutUint32(raw[0x08:0x0C], e.StartLBA)
		binary.LittleEndian.PutUint32(raw[0x0C:0x10], e.SectorCount)
	}
	binary.LittleEndian.PutUint16(sector[0x1FE:], 0xAA55)
	return sector
}

func TestParse_RejectsMissingSignature(t *testing.T) {
	sector := make([]byte, 512)
	_, err := partition.Parse(sector)
	require.Error(t, err)
}

func TestParse_RejectsWrongLength(t *testing.T) {
	_, err := partition.Parse(make([]byte, 100))
	require.Error(t, err)
}

func TestFirstFAT32_SkipsNonFAT32AndEmptyEntries(t *testing.T) {
	sector := buildMBR(
		partition.Entry{Type: partition.TypeLinuxSwap, StartLBA: 2048, SectorCount: 1024},
		partition.Entry{Type: partition.TypeFAT32LBA, StartLBA: 4096, SectorCount: 65536, Bootable: true},
	)

	table, err := partition.Parse(sector)
	require.NoError(t, err)

	entry, ok := table.FirstFAT32()
	require.True(t, ok)
	require.True(t, entry.Bootable)
	require.Equal(t, uint32(4096), entry.StartLBA)
	require.Equal(t, int64(4096*512), entry.StartByte())
	require.Equal(t, uint64(65536*512), entry.Size())
}

func TestFirstFAT32_NoneFound(t *testing.T) {
	sector := buildMBR(partition.Entry{Type: partition.TypeLinuxFilesystem, StartLBA: 2048, SectorCount: 1024})

	table, err := partition.Parse(sector)
	require.NoError(t, err)

	_, ok := table.FirstFAT32()
	require.False(t, ok)
}

func TestFirstFAT16_DetectsOutOfScopeEntry(t *testing.T) {
	sector := buildMBR(partition.Entry{Type: partition.TypeFAT16, StartLBA: 2048, SectorCount: 4096})

	table, err := partition.Parse(sector)
	require.NoError(t, err)

	_, ok := table.FirstFAT32()
	require.False(t, ok)

	entry, ok := table.FirstFAT16()
	require.True(t, ok)
	require.True(t, entry.Type.IsFAT16())
}

func TestByIndex(t *testing.T) {
	sector := buildMBR(
		partition.Entry{Type: partition.TypeFAT32LBA, StartLBA: 2048, SectorCount: 4096},
	)
	table, err := partition.Parse(sector)
	require.NoError(t, err)

	entry, err := table.ByIndex(1)
	require.NoError(t, err)
	require.Equal(t, uint32(2048), entry.StartLBA)

	_, err = table.ByIndex(2)
	require.Error(t, err) // entry 2 is present but empty

	_, err = table.ByIndex(0)
	require.Error(t, err)

	_, err = table.ByIndex(5)
	require.Error(t, err)
}
