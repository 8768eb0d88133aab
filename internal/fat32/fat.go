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

import "encoding/binary"

// FAT32 entries are 32 bits wide but only the low 28 bits carry the value;
// the top nibble is reserved.
const fatEntryMask = 0x0FFFFFFF

const (
	fatFree     uint32 = 0x0000000
	fatReserved uint32 = 0x0000001
	fatBad      uint32 = 0x0FFFFFF7
	fatEOCLow   uint32 = 0x0FFFFFF8
)

// FATClass is the totality-preserving classification of a 32-bit FAT entry
// value: for every possible value exactly one of these holds.
type FATClass int

const (
	FATFree FATClass = iota
	FATReserved
	FATNext
	FATBad
	FATEOC
)

// ClassifyFAT classifies a masked 28-bit FAT entry value.
func ClassifyFAT(v uint32) (FATClass, uint32) {
	switch {
	case v == fatFree:
		return FATFree, 0
	case v == fatReserved:
		return FATReserved, 0
	case v == fatBad:
		return FATBad, 0
	case v >= fatEOCLow:
		return FATEOC, 0
	default:
		return FATNext, v
	}
}

// readFATEntry reads the raw 32-bit little-endian FAT entry for cluster n,
// masked to its low 28 bits.
func readFATEntry(br BlockReader, bpb *BPB, n uint32) (uint32, error) {
	fatByteOffset := uint64(n) * 4
	sector := uint64(bpb.FATStartSector()) + fatByteOffset/uint64(bpb.BytesPerSector())
	within := fatByteOffset % uint64(bpb.BytesPerSector())

	var buf [4]byte
	off := sector*uint64(bpb.BytesPerSector()) + within
	if err := readExact(br, buf[:], int64(off)); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]) & fatEntryMask, nil
}

// NextCluster returns the next cluster in the chain following n. If n's FAT
// entry is EOC it returns ok=false with a nil error; a bad-cluster entry is
// reported as BadCluster, and a free or reserved value encountered while
// walking an in-use chain as FileCorrupt, per spec.md §4.3.
func NextCluster(br BlockReader, bpb *BPB, n uint32) (next uint32, ok bool, err error) {
	v, err := readFATEntry(br, bpb, n)
	if err != nil {
		return 0, false, err
	}

	class, val := ClassifyFAT(v)
	switch class {
	case FATNext:
		return val, true, nil
	case FATEOC:
		return 0, false, nil
	case FATBad:
		return 0, false, errBadCluster(n)
	default: // FATFree, FATReserved mid-chain: corruption
		return 0, false, errFileCorrupt()
	}
}

// ChainWalker lazily iterates a cluster chain starting at a given cluster,
// one sector-granularity FAT read per step. It never reads more than
// TotalDataClusters steps, guaranteeing termination even over a corrupt FAT.
type ChainWalker struct {
	br      BlockReader
	bpb     *BPB
	current uint32
	started bool
	steps   uint32
	maxStep uint32
	err     error
}

// NewChainWalker returns an iterator over the cluster chain rooted at start.
func NewChainWalker(br BlockReader, bpb *BPB, start uint32) *ChainWalker {
	return &ChainWalker{
		br:      br,
		bpb:     bpb,
		current: start,
		maxStep: bpb.TotalDataClusters(),
	}
}

// Next advances to the next cluster and returns it, or ok=false at the end
// of the chain (EOC) or on error (see Err).
func (w *ChainWalker) Next() (cluster uint32, ok bool) {
	if w.err != nil {
		return 0, false
	}
	if !w.started {
		w.started = true
		return w.current, true
	}

	w.steps++
	if w.steps > w.maxStep {
		w.err = errFileCorrupt()
		return 0, false
	}

	next, ok, err := NextCluster(w.br, w.bpb, w.current)
	if err != nil {
		w.err = err
		return 0, false
	}
	if !ok {
		return 0, false
	}
	w.current = next
	return w.current, true
}

// Err returns the first error encountered while walking, if any.
func (w *ChainWalker) Err() error { return w.err }
