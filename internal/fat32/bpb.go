// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const bootSectorSize = 512

// BPB is the BIOS Parameter Block of a FAT32 volume, decoded from sector 0.
// Field names and on-disk order follow Microsoft's FAT32 spec; multi-byte
// integers are decoded little-endian by binary.Read and raw byte strings are
// kept as byte arrays, so the whole struct decodes in one pass.
type BPB struct {
	BSJmpBoot     [3]byte
	BSOEMName     [8]byte
	BytesPerSec   uint16
	SecPerClus    uint8
	RsvdSecCnt    uint16
	NumFATs       uint8
	RootEntCnt    uint16
	TotSec16      uint16
	Media         uint8
	FATSz16       uint16
	SecPerTrk     uint16
	NumHeads      uint16
	HiddSec       uint32
	TotSec32      uint32
	FATSz32       uint32
	ExtFlags      uint16
	FSVer         uint16
	RootClus      uint32
	FSInfo        uint16
	BkBootSec     uint16
	Reserved      [12]byte
	BSDrvNum      uint8
	BSReserved1   uint8
	BSBootSig     uint8
	BSVolID       uint32
	BSVolLab      [11]byte
	BSFilSysType  [8]byte
	BootCode      [420]byte
	TrailSig      uint16
}

// ParseBPB decodes and validates a 512-byte sector 0 image. Any violation of
// the FAT32 invariants in spec.md §4.2 is reported as an *Error with
// Kind == KindInvalidBPB.
func ParseBPB(sector0 []byte) (*BPB, error) {
	if len(sector0) != bootSectorSize {
		return nil, errInvalidBPB(fmt.Sprintf("expected %d bytes, got %d", bootSectorSize, len(sector0)))
	}

	var b BPB
	if err := binary.Read(bytes.NewReader(sector0), binary.LittleEndian, &b); err != nil {
		return nil, errIO(err)
	}

	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *BPB) validate() error {
	switch {
	case b.BSJmpBoot[0] == 0xEB && b.BSJmpBoot[2] == 0x90:
	case b.BSJmpBoot[0] == 0xE9:
	default:
		return errInvalidBPB("BS_jmpBoot is neither EB xx 90 nor E9 xx xx")
	}

	switch b.BytesPerSec {
	case 512, 1024, 2048, 4096:
	default:
		return errInvalidBPB("BPB_BytsPerSec must be 512, 1024, 2048 or 4096")
	}

	if b.SecPerClus == 0 || b.SecPerClus&(b.SecPerClus-1) != 0 {
		return errInvalidBPB("BPB_SecPerClus must be a power of two")
	}

	bytesPerCluster := uint32(b.BytesPerSec) * uint32(b.SecPerClus)
	if bytesPerCluster > 32*1024 {
		return errInvalidBPB("bytes per cluster exceeds 32768")
	}

	if b.Media != 0xF0 && b.Media < 0xF8 {
		return errInvalidBPB("invalid BPB_Media value")
	}

	if b.RootEntCnt != 0 {
		return errInvalidBPB("BPB_RootEntCnt must be 0 for FAT32")
	}
	if b.TotSec16 != 0 {
		return errInvalidBPB("BPB_TotSec16 must be 0 for FAT32")
	}
	if b.FATSz16 != 0 {
		return errInvalidBPB("BPB_FATSz16 must be 0 for FAT32")
	}
	if b.TotSec32 == 0 {
		return errInvalidBPB("BPB_TotSec32 must be non-zero for FAT32")
	}
	if b.FSVer != 0 {
		return errInvalidBPB("BPB_FSVer must be 0:0")
	}
	for _, v := range b.Reserved {
		if v != 0 {
			return errInvalidBPB("BPB_Reserved must be all zero")
		}
	}
	if string(b.BSFilSysType[:]) != "FAT32   " {
		return errInvalidBPB(`BS_FilSysType must be "FAT32   "`)
	}
	if b.TrailSig != 0xAA55 {
		return errInvalidBPB("boot sector signature must be 0xAA55")
	}

	if uint64(b.TotSec32) <= uint64(b.dataStartSector()) {
		return errInvalidBPB("BPB_TotSec32 does not leave room for a data region")
	}
	if b.RootClus < 2 {
		return errInvalidBPB("BPB_RootClus must be >= 2")
	}

	return nil
}

// --- Derived geometry. All pure functions of the validated BPB. ---

func (b *BPB) BytesPerSector() uint32  { return uint32(b.BytesPerSec) }
func (b *BPB) SectorsPerCluster() uint32 { return uint32(b.SecPerClus) }
func (b *BPB) BytesPerCluster() uint32 {
	return b.BytesPerSector() * b.SectorsPerCluster()
}

func (b *BPB) fatStartSector() uint32 { return uint32(b.RsvdSecCnt) }

func (b *BPB) fatRegionSectors() uint32 {
	return b.FATSz32 * uint32(b.NumFATs)
}

func (b *BPB) dataStartSector() uint32 {
	return b.fatStartSector() + b.fatRegionSectors()
}

// DataStartSector returns the first sector of the data (cluster) region.
func (b *BPB) DataStartSector() uint32 { return b.dataStartSector() }

// FATStartSector returns the first sector of the first FAT.
func (b *BPB) FATStartSector() uint32 { return b.fatStartSector() }

// ClusterStartSector returns the first sector of cluster n (n >= 2).
func (b *BPB) ClusterStartSector(n uint32) uint32 {
	return b.dataStartSector() + (n-2)*b.SectorsPerCluster()
}

// TotalDataClusters is an upper bound on the number of clusters in the data
// region; used as a hard cap on chain-walk iteration to guarantee
// termination (spec.md §8, "chain walk termination").
func (b *BPB) TotalDataClusters() uint32 {
	dataSectors := b.TotSec32 - b.dataStartSector()
	return dataSectors / b.SectorsPerCluster()
}

// TotalBytes returns the total addressable size of the volume in bytes.
func (b *BPB) TotalBytes() uint64 {
	return uint64(b.TotSec32) * uint64(b.BytesPerSec)
}

// RootCluster is the first cluster of the root directory's chain.
func (b *BPB) RootCluster() uint32 { return b.RootClus }
