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
	"encoding/binary"
	"strings"
	"time"
	"unicode/utf16"
)

// Directory entry attribute bits (DIR_Attr).
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = 0x0F
)

const dirEntrySize = 32

// lastLongEntryBit marks the terminating (highest-ordinal) LFN slot.
const lastLongEntryBit = 0x40

// DirEntry is a reassembled logical directory record: one terminating 8.3
// entry plus, if present, its reconstructed long name.
type DirEntry struct {
	ShortName    string
	LongName     string
	Attributes   uint8
	FirstCluster uint32
	FileSize     uint32
	CreateTime   time.Time
	WriteTime    time.Time
	AccessDate   time.Time
}

// IsDir reports whether the entry is a directory.
func (e *DirEntry) IsDir() bool { return e.Attributes&AttrDirectory != 0 }

// IsVolumeID reports whether the entry is a volume-label entry.
func (e *DirEntry) IsVolumeID() bool { return e.Attributes&AttrVolumeID != 0 }

// Name is the long name if one was reconstructed, else the short name —
// the canonical form used for lookup comparisons (spec.md §4.6).
func (e *DirEntry) Name() string {
	if e.LongName != "" {
		return e.LongName
	}
	return e.ShortName
}

// rawShortEntry mirrors the on-disk 32-byte 8.3 directory entry layout.
type rawShortEntry struct {
	Name        [11]byte
	Attr        uint8
	NTRes       uint8
	CrtTimeTenth uint8
	CrtTime     uint16
	CrtDate     uint16
	LstAccDate  uint16
	FstClusHI   uint16
	WrtTime     uint16
	WrtDate     uint16
	FstClusLO   uint16
	FileSize    uint32
}

// rawLongEntry mirrors the on-disk 32-byte LFN slot layout.
type rawLongEntry struct {
	Ord      uint8
	Name1    [5]uint16
	Attr     uint8
	Type     uint8
	Chksum   uint8
	Name2    [6]uint16
	FstClusLO uint16
	Name3    [2]uint16
}

func decodeShortEntry(buf []byte) rawShortEntry {
	var e rawShortEntry
	copy(e.Name[:], buf[0:11])
	e.Attr = buf[11]
	e.NTRes = buf[12]
	e.CrtTimeTenth = buf[13]
	e.CrtTime = binary.LittleEndian.Uint16(buf[14:16])
	e.CrtDate = binary.LittleEndian.Uint16(buf[16:18])
	e.LstAccDate = binary.LittleEndian.Uint16(buf[18:20])
	e.FstClusHI = binary.LittleEndian.Uint16(buf[20:22])
	e.WrtTime = binary.LittleEndian.Uint16(buf[22:24])
	e.WrtDate = binary.LittleEndian.Uint16(buf[24:26])
	e.FstClusLO = binary.LittleEndian.Uint16(buf[26:28])
	e.FileSize = binary.LittleEndian.Uint32(buf[28:32])
	return e
}

func decodeLongEntry(buf []byte) rawLongEntry {
	var e rawLongEntry
	e.Ord = buf[0]
	for i := 0; i < 5; i++ {
		e.Name1[i] = binary.LittleEndian.Uint16(buf[1+2*i : 3+2*i])
	}
	e.Attr = buf[11]
	e.Type = buf[12]
	e.Chksum = buf[13]
	for i := 0; i < 6; i++ {
		e.Name2[i] = binary.LittleEndian.Uint16(buf[14+2*i : 16+2*i])
	}
	e.FstClusLO = binary.LittleEndian.Uint16(buf[26:28])
	for i := 0; i < 2; i++ {
		e.Name3[i] = binary.LittleEndian.Uint16(buf[28+2*i : 30+2*i])
	}
	return e
}

// units returns this slot's 13 UTF-16LE code units in order.
func (e rawLongEntry) units() []uint16 {
	u := make([]uint16, 0, 13)
	u = append(u, e.Name1[:]...)
	u = append(u, e.Name2[:]...)
	u = append(u, e.Name3[:]...)
	return u
}

// shortNameChecksum computes the rotate-right-then-add checksum over the
// 11-byte packed short name (spec.md §4.4).
func shortNameChecksum(name [11]byte) uint8 {
	var sum uint8
	for _, c := range name {
		sum = ((sum >> 1) | (sum << 7)) + c
	}
	return sum
}

func decodeShortName(e rawShortEntry) string {
	base := strings.TrimRight(string(e.Name[0:8]), " ")
	ext := strings.TrimRight(string(e.Name[8:11]), " ")

	if e.NTRes&0x08 != 0 {
		base = strings.ToLower(base)
	}
	if e.NTRes&0x10 != 0 {
		ext = strings.ToLower(ext)
	}

	if ext == "" {
		return base
	}
	return base + "." + ext
}

func decodeFATTime(date, timeField uint16) time.Time {
	year := 1980 + int(date>>9)
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	hour := int(timeField >> 11)
	minute := int((timeField >> 5) & 0x3F)
	second := int(timeField&0x1F) * 2

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

func decodeFATDateOnly(date uint16) time.Time {
	return decodeFATTime(date, 0)
}

// DirStream is a pull-based decoder over a directory's cluster chain. It
// reassembles 32-byte short entries together with any preceding LFN slots
// into logical records; raw slots, tombstones, and the terminator are never
// exposed to the caller (spec.md §9).
type DirStream struct {
	br      BlockReader
	bpb     *BPB
	walker  *ChainWalker
	cluster uint32
	haveCur bool
	offset  uint32 // byte offset within the current cluster
	done    bool
	err     error
}

// NewDirStream returns a decoder over the directory rooted at startCluster.
func NewDirStream(br BlockReader, bpb *BPB, startCluster uint32) *DirStream {
	return &DirStream{
		br:     br,
		bpb:    bpb,
		walker: NewChainWalker(br, bpb, startCluster),
	}
}

// Err returns the first error encountered, if any.
func (s *DirStream) Err() error { return s.err }

func (s *DirStream) advanceCluster() bool {
	c, ok := s.walker.Next()
	if !ok {
		if err := s.walker.Err(); err != nil {
			s.err = err
		}
		return false
	}
	s.cluster = c
	s.haveCur = true
	s.offset = 0
	return true
}

func (s *DirStream) readEntryBytes() ([]byte, bool) {
	for {
		if s.err != nil || s.done {
			return nil, false
		}
		if !s.haveCur {
			if !s.advanceCluster() {
				return nil, false
			}
		}
		if s.offset+dirEntrySize > s.bpb.BytesPerCluster() {
			s.haveCur = false
			continue
		}

		buf := make([]byte, dirEntrySize)
		clusterByteOff := uint64(s.bpb.ClusterStartSector(s.cluster)) * uint64(s.bpb.BytesPerSector())
		off := clusterByteOff + uint64(s.offset)
		if err := readExact(s.br, buf, int64(off)); err != nil {
			s.err = err
			return nil, false
		}
		s.offset += dirEntrySize
		return buf, true
	}
}

// Next decodes and returns the next logical directory record, or
// (nil, nil) at the end of the directory, or (nil, err) on failure.
func (s *DirStream) Next() (*DirEntry, error) {
	var lfnSlots []rawLongEntry

	for {
		buf, ok := s.readEntryBytes()
		if !ok {
			return nil, s.err
		}

		if buf[0] == 0x00 {
			s.done = true
			return nil, nil
		}
		if buf[0] == 0xE5 {
			lfnSlots = nil
			continue
		}

		attr := buf[11]
		if attr&AttrLongName == AttrLongName {
			lfnSlots = append(lfnSlots, decodeLongEntry(buf))
			continue
		}

		short := decodeShortEntry(buf)
		entry := &DirEntry{
			ShortName:    decodeShortName(short),
			Attributes:   short.Attr,
			FirstCluster: uint32(short.FstClusHI)<<16 | uint32(short.FstClusLO),
			FileSize:     short.FileSize,
			CreateTime:   decodeFATTime(short.CrtDate, short.CrtTime),
			WriteTime:    decodeFATTime(short.WrtDate, short.WrtTime),
			AccessDate:   decodeFATDateOnly(short.LstAccDate),
		}

		if len(lfnSlots) > 0 {
			if name, ok := reconstructLongName(lfnSlots, shortNameChecksum(short.Name)); ok {
				entry.LongName = name
			}
		}

		return entry, nil
	}
}

// reconstructLongName rebuilds a long name from its LFN slots. Slots appear
// on disk in descending ordinal order immediately before the 8.3 entry;
// ascending order is name1 2 3 ... so we walk lfnSlots in reverse. Every
// slot's checksum must match the short name's checksum, or the long name is
// discarded (ok=false) and the short name is used instead.
func reconstructLongName(slots []rawLongEntry, sfnChecksum uint8) (string, bool) {
	if len(slots) == 0 || !isLastLongOrdinal(slots[0].Ord) {
		return "", false
	}

	var units []uint16
	for i := len(slots) - 1; i >= 0; i-- {
		slot := slots[i]
		if slot.Chksum != sfnChecksum {
			return "", false
		}
		units = append(units, slot.units()...)
	}

	// Trim at the first NUL / 0xFFFF padding unit.
	for i, u := range units {
		if u == 0x0000 || u == 0xFFFF {
			units = units[:i]
			break
		}
	}

	return string(utf16.Decode(units)), true
}

// isLastLongOrdinal reports whether ord marks the terminating LFN slot.
func isLastLongOrdinal(ord uint8) bool {
	return ord&lastLongEntryBit != 0
}
