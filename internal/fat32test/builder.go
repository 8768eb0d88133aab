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

// Package fat32test builds small, fully in-memory FAT32 images for unit
// tests. There is no on-disk fixture and no external mkfs tool involved —
// every sector is assembled by hand so a test can describe exactly the
// cluster chains, directory entries, and corruption it wants to exercise.
package fat32test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

const (
	bytesPerSector = 512
	numFATs        = 2
	reservedSecs   = 32
	fatEOC         = 0x0FFFFFFF
	fatBad         = 0x0FFFFFF7
)

// Builder assembles a FAT32 image cluster by cluster. The zero value is not
// usable; construct one with New.
type Builder struct {
	sectorsPerCluster uint8
	dataClusterCount  uint32

	fat      []uint32 // indexed by cluster number; 0 and 1 are reserved
	clusters map[uint32][]byte
	dirWrite map[uint32]int // next free byte offset within a directory's single cluster

	rootCluster uint32
	nextFree    uint32
}

// New returns a Builder for a volume with the given geometry. dataClusters
// is the number of addressable data clusters (numbered 2..dataClusters+1);
// tests only need enough to hold their fixture.
func New(sectorsPerCluster uint8, dataClusters uint32) *Builder {
	b := &Builder{
		sectorsPerCluster: sectorsPerCluster,
		dataClusterCount:  dataClusters,
		fat:               make([]uint32, dataClusters+2),
		clusters:          make(map[uint32][]byte),
		dirWrite:          make(map[uint32]int),
		nextFree:          2,
	}
	b.rootCluster = b.allocCluster()
	return b
}

// RootCluster returns the first cluster of the root directory.
func (b *Builder) RootCluster() uint32 { return b.rootCluster }

func (b *Builder) bytesPerCluster() int {
	return bytesPerSector * int(b.sectorsPerCluster)
}

func (b *Builder) allocCluster() uint32 {
	c := b.nextFree
	b.nextFree++
	b.fat[c] = fatEOC
	b.clusters[c] = make([]byte, b.bytesPerCluster())
	return c
}

// Chain links clusters in order, terminating the last one with EOC. It is
// used to build multi-cluster files.
func (b *Builder) Chain(clusters ...uint32) {
	for i := 0; i < len(clusters)-1; i++ {
		b.fat[clusters[i]] = clusters[i+1]
	}
	if len(clusters) > 0 {
		b.fat[clusters[len(clusters)-1]] = fatEOC
	}
}

// MarkBad sets cluster's FAT entry to the bad-cluster marker, for tests of
// the BadCluster error path.
func (b *Builder) MarkBad(cluster uint32) {
	b.fat[cluster] = fatBad
}

// Truncate cuts cluster's chain short by overwriting its FAT entry with the
// free marker, simulating a directory or file whose chain ends before the
// recorded size is satisfied.
func (b *Builder) Truncate(cluster uint32) {
	b.fat[cluster] = 0
}

// WriteCluster overwrites a cluster's raw bytes (truncated or zero-padded to
// one cluster).
func (b *Builder) WriteCluster(cluster uint32, data []byte) {
	buf := make([]byte, b.bytesPerCluster())
	copy(buf, data)
	b.clusters[cluster] = buf
}

// AddFile writes content into a freshly allocated cluster chain and appends
// a directory entry for it (with a long-name entry set if name does not fit
// the 8.3 form) to dirCluster. It returns the file's first cluster.
func (b *Builder) AddFile(dirCluster uint32, name string, content []byte) uint32 {
	first := b.writeChainedData(content)
	b.addDirent(dirCluster, name, 0x20, first, uint32(len(content)))
	return first
}

// AddDir allocates an empty directory cluster and appends a directory entry
// for it to dirCluster. It returns the new directory's first cluster.
func (b *Builder) AddDir(dirCluster uint32, name string) uint32 {
	child := b.allocCluster()
	b.addDirent(dirCluster, name, 0x10, child, 0)
	return child
}

// AddVolumeLabel appends a volume-label entry (ATTR_VOLUME_ID, no LFN, no
// data cluster) to dirCluster, for tests of the label-filtering policy.
func (b *Builder) AddVolumeLabel(dirCluster uint32, label string) {
	entry := make([]byte, 32)
	packed, _ := shortName(label)
	copy(entry[0:11], packed[:])
	entry[11] = 0x08 // ATTR_VOLUME_ID
	b.appendEntry(dirCluster, entry)
}

func (b *Builder) writeChainedData(content []byte) uint32 {
	if len(content) == 0 {
		return b.allocCluster()
	}

	clusterSize := b.bytesPerCluster()
	var chain []uint32
	for off := 0; off < len(content); off += clusterSize {
		c := b.allocCluster()
		end := off + clusterSize
		if end > len(content) {
			end = len(content)
		}
		b.WriteCluster(c, content[off:end])
		chain = append(chain, c)
	}
	b.Chain(chain...)
	return chain[0]
}

func (b *Builder) addDirent(dirCluster uint32, name string, attr uint8, firstCluster, size uint32) {
	short, long := shortName(name)

	if long != "" {
		for _, slot := range lfnSlots(long, short) {
			b.appendEntry(dirCluster, slot)
		}
	}

	entry := make([]byte, 32)
	copy(entry[0:11], short[:])
	entry[11] = attr
	binary.LittleEndian.PutUint16(entry[20:22], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(entry[26:28], uint16(firstCluster&0xFFFF))
	binary.LittleEndian.PutUint32(entry[28:32], size)
	b.appendEntry(dirCluster, entry)
}

func (b *Builder) appendEntry(dirCluster uint32, entry []byte) {
	off := b.dirWrite[dirCluster]
	buf := b.clusters[dirCluster]
	copy(buf[off:off+32], entry)
	b.dirWrite[dirCluster] = off + 32
}

// shortName produces an 11-byte packed 8.3 name. If name does not already
// fit that form, it is truncated/upper-cased into a short alias and the
// caller is also told the original long name to store via LFN entries.
func shortName(name string) ([11]byte, string) {
	base, ext, _ := strings.Cut(name, ".")
	fits := len(base) <= 8 && len(ext) <= 3 && name == strings.ToUpper(name)

	var packed [11]byte
	for i := range packed {
		packed[i] = ' '
	}

	upperBase := strings.ToUpper(base)
	if len(upperBase) > 8 {
		upperBase = upperBase[:8]
	}
	upperExt := strings.ToUpper(ext)
	if len(upperExt) > 3 {
		upperExt = upperExt[:3]
	}
	copy(packed[0:8], upperBase)
	copy(packed[8:11], upperExt)

	if fits {
		return packed, ""
	}
	return packed, name
}

func checksum(name [11]byte) uint8 {
	var sum uint8
	for _, c := range name {
		sum = ((sum >> 1) | (sum << 7)) + c
	}
	return sum
}

// lfnSlots builds the LFN entries for long, in on-disk (descending ordinal,
// last-first) order, ready to be appended immediately before the short entry.
func lfnSlots(long string, short [11]byte) [][]byte {
	units := utf16.Encode([]rune(long))
	units = append(units, 0x0000)

	const perSlot = 13
	var slots [][]byte
	for off := 0; off < len(units); off += perSlot {
		end := off + perSlot
		chunk := make([]uint16, perSlot)
		for i := range chunk {
			chunk[i] = 0xFFFF
		}
		n := end
		if n > len(units) {
			n = len(units)
		}
		copy(chunk, units[off:n])

		ord := uint8(off/perSlot) + 1
		slot := make([]byte, 32)
		slot[0] = ord
		for i := 0; i < 5; i++ {
			binary.LittleEndian.PutUint16(slot[1+2*i:3+2*i], chunk[i])
		}
		slot[11] = 0x0F // AttrLongName
		slot[13] = checksum(short)
		for i := 0; i < 6; i++ {
			binary.LittleEndian.PutUint16(slot[14+2*i:16+2*i], chunk[5+i])
		}
		for i := 0; i < 2; i++ {
			binary.LittleEndian.PutUint16(slot[28+2*i:30+2*i], chunk[11+i])
		}
		slots = append(slots, slot)
	}

	// Mark the terminating (highest-ordinal) slot and reverse to
	// descending-ordinal disk order.
	slots[len(slots)-1][0] |= 0x40
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}
	return slots
}

// Image is the built volume: an in-memory, io.ReaderAt-compatible byte
// buffer ready to hand to fat32.Mount.
type Image struct {
	*bytes.Reader
}

// Build renders the full volume image, including boot sector, both FAT
// copies, and the data region.
func (b *Builder) Build() *Image {
	totalSectors := reservedSecs + numFATs*b.fatSectors() + b.dataClusterCount*uint32(b.sectorsPerCluster)

	img := make([]byte, uint64(totalSectors)*bytesPerSector)
	copy(img[0:bytesPerSector], b.bootSector(totalSectors))

	fatBytes := b.fatBytes()
	for i := 0; i < numFATs; i++ {
		start := (reservedSecs + uint32(i)*b.fatSectors()) * bytesPerSector
		copy(img[start:], fatBytes)
	}

	dataStart := (reservedSecs + numFATs*b.fatSectors()) * bytesPerSector
	for cluster, data := range b.clusters {
		off := uint64(dataStart) + uint64(cluster-2)*uint64(b.bytesPerCluster())
		copy(img[off:], data)
	}

	return &Image{Reader: bytes.NewReader(img)}
}

func (b *Builder) fatSectors() uint32 {
	entryBytes := uint32(len(b.fat)) * 4
	sectors := entryBytes / bytesPerSector
	if entryBytes%bytesPerSector != 0 {
		sectors++
	}
	if sectors == 0 {
		sectors = 1
	}
	return sectors
}

func (b *Builder) fatBytes() []byte {
	buf := make([]byte, b.fatSectors()*bytesPerSector)
	for i, v := range b.fat {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], v&0x0FFFFFFF)
	}
	return buf
}

func (b *Builder) bootSector(totalSectors uint32) []byte {
	buf := make([]byte, bytesPerSector)

	buf[0], buf[1], buf[2] = 0xEB, 0x58, 0x90
	copy(buf[3:11], "MSWIN4.1")
	binary.LittleEndian.PutUint16(buf[11:13], bytesPerSector)
	buf[13] = b.sectorsPerCluster
	binary.LittleEndian.PutUint16(buf[14:16], reservedSecs)
	buf[16] = numFATs
	// RootEntCnt, TotSec16, FATSz16 all stay zero, as FAT32 requires.
	buf[21] = 0xF8 // Media: fixed disk
	binary.LittleEndian.PutUint32(buf[32:36], totalSectors)
	binary.LittleEndian.PutUint32(buf[36:40], b.fatSectors())
	// ExtFlags, FSVer stay zero (one active FAT mirrored, version 0.0).
	binary.LittleEndian.PutUint32(buf[44:48], b.rootCluster)
	binary.LittleEndian.PutUint16(buf[48:50], 1) // FSInfo sector
	binary.LittleEndian.PutUint16(buf[50:52], 6) // BkBootSec
	buf[64] = 0x80                               // BS_DrvNum
	buf[66] = 0x29                               // BS_BootSig
	binary.LittleEndian.PutUint32(buf[67:71], 0x12345678)
	copy(buf[71:82], "NO NAME    ")
	copy(buf[82:90], "FAT32   ")
	binary.LittleEndian.PutUint16(buf[510:512], 0xAA55)
	return buf
}
