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

// Package partition locates FAT32 volumes on a whole-disk image: it parses
// the MBR partition table so the CLI can mount "disk.img" directly instead
// of requiring a pre-sliced volume image (SPEC_FULL.md §4.8).
package partition

import (
	"encoding/binary"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Type is an MBR partition type byte (the field historically called the
// "system ID").
type Type uint8

const (
	TypeEmpty             Type = 0x00
	TypeFAT12             Type = 0x01
	TypeFAT16Small        Type = 0x04
	TypeExtendedCHS       Type = 0x05
	TypeFAT16             Type = 0x06
	TypeNTFSHPFSExFAT     Type = 0x07
	TypeFAT32CHS          Type = 0x0B
	TypeFAT32LBA          Type = 0x0C
	TypeFAT16LBA          Type = 0x0E
	TypeExtendedLBA       Type = 0x0F
	TypeLinuxSwap         Type = 0x82
	TypeLinuxFilesystem   Type = 0x83
	TypeGPTProtectiveMBR  Type = 0xEE
	TypeEFISystemPart     Type = 0xEF
)

// IsFAT32 reports whether t names one of the two FAT32 system IDs.
func (t Type) IsFAT32() bool { return t == TypeFAT32CHS || t == TypeFAT32LBA }

// IsFAT16 reports whether t names a FAT16 system ID. FAT16 stays out of
// scope (spec.md Non-goals); callers use this to reject it with a clear
// error instead of silently trying to mount it as something else.
func (t Type) IsFAT16() bool { return t == TypeFAT16Small || t == TypeFAT16 || t == TypeFAT16LBA }

// String names the partition type the way fdisk does, for log lines.
func (t Type) String() string {
	switch t {
	case TypeEmpty:
		return "Empty"
	case TypeFAT12:
		return "FAT12"
	case TypeFAT16Small:
		return "FAT16 (<32MB)"
	case TypeExtendedCHS:
		return "Extended (CHS)"
	case TypeFAT16:
		return "FAT16"
	case TypeNTFSHPFSExFAT:
		return "NTFS/HPFS/exFAT"
	case TypeFAT32CHS:
		return "FAT32 (CHS)"
	case TypeFAT32LBA:
		return "FAT32 (LBA)"
	case TypeFAT16LBA:
		return "FAT16 (LBA)"
	case TypeExtendedLBA:
		return "Extended (LBA)"
	case TypeLinuxSwap:
		return "Linux swap"
	case TypeLinuxFilesystem:
		return "Linux filesystem"
	case TypeGPTProtectiveMBR:
		return "GPT protective MBR"
	case TypeEFISystemPart:
		return "EFI System Partition"
	default:
		return fmt.Sprintf("unknown (0x%02X)", uint8(t))
	}
}

// Entry is one decoded 16-byte MBR partition table entry.
type Entry struct {
	Bootable     bool
	Type         Type
	StartLBA     uint32
	SectorCount  uint32
}

// StartByte is the entry's start offset assuming 512-byte sectors, which the
// MBR itself always uses regardless of the volume's own sector size.
func (e Entry) StartByte() int64 { return int64(e.StartLBA) * 512 }

// Size is the entry's length in bytes assuming 512-byte sectors.
func (e Entry) Size() uint64 { return uint64(e.SectorCount) * 512 }

func (e Entry) String() string {
	bootable := ""
	if e.Bootable {
		bootable = " bootable"
	}
	return fmt.Sprintf("%s%s, start LBA %d, %s", e.Type, bootable, e.StartLBA, humanize.Bytes(e.Size()))
}

// Table is a parsed 512-byte MBR sector.
type Table struct {
	Entries [4]Entry
}

const (
	mbrSize            = 512
	mbrSignatureOffset = 0x1FE
	mbrPartitionOffset = 0x1BE
	mbrEntrySize       = 16
)

// Parse decodes a 512-byte MBR sector. It returns an error if the trailing
// 0x55AA signature is absent, which callers should treat as "not
// partitioned" rather than fatal. A FAT32 boot sector ends in the same
// signature, so Parse also succeeds on a bare FAT32 volume's sector 0 and
// decodes its boot-code bytes as partition entries.
func Parse(sector []byte) (*Table, error) {
	if len(sector) != mbrSize {
		return nil, fmt.Errorf("partition: MBR sector must be %d bytes, got %d", mbrSize, len(sector))
	}
	if sig := binary.LittleEndian.Uint16(sector[mbrSignatureOffset:]); sig != 0xAA55 {
		return nil, fmt.Errorf("partition: missing MBR signature (got 0x%04X)", sig)
	}

	var t Table
	for i := range t.Entries {
		raw := sector[mbrPartitionOffset+i*mbrEntrySize:]
		t.Entries[i] = Entry{
			Bootable:    raw[0x00] == 0x80,
			Type:        Type(raw[0x04]),
			StartLBA:    binary.LittleEndian.Uint32(raw[0x08:0x0C]),
			SectorCount: binary.LittleEndian.Uint32(raw[0x0C:0x10]),
		}
	}
	return &t, nil
}

// FirstFAT32 returns the first non-empty FAT32 entry in the table, if any.
func (t *Table) FirstFAT32() (Entry, bool) {
	for _, e := range t.Entries {
		if e.Type.IsFAT32() && e.SectorCount > 0 {
			return e, true
		}
	}
	return Entry{}, false
}

// FirstFAT16 returns the first non-empty FAT16 entry in the table, if any.
// Used only to produce a clear "FAT16 is out of scope" error rather than
// silently falling through to bare-volume auto-detection (SPEC_FULL.md
// §4.8).
func (t *Table) FirstFAT16() (Entry, bool) {
	for _, e := range t.Entries {
		if e.Type.IsFAT16() && e.SectorCount > 0 {
			return e, true
		}
	}
	return Entry{}, false
}

// ByIndex returns the 1-based numbered partition (matching fdisk's
// numbering), for the CLI's --partition flag.
func (t *Table) ByIndex(n int) (Entry, error) {
	if n < 1 || n > len(t.Entries) {
		return Entry{}, fmt.Errorf("partition: index %d out of range (1-%d)", n, len(t.Entries))
	}
	e := t.Entries[n-1]
	if e.SectorCount == 0 {
		return Entry{}, fmt.Errorf("partition: entry %d is empty", n)
	}
	return e, nil
}
