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

import "strings"

// Volume is the read-only FAT32 access engine: a BlockReader plus a parsed,
// validated BPB. It has no mutable state of its own — callers (the handle
// table / inode resolver layer) own everything that changes.
type Volume struct {
	br  BlockReader
	bpb *BPB
}

// Mount reads and validates sector 0 of br and returns the resulting Volume.
// InvalidBPB is fatal here; per spec.md §7 it never arises from later calls.
func Mount(br BlockReader) (*Volume, error) {
	var sector0 [bootSectorSize]byte
	if err := readExact(br, sector0[:], 0); err != nil {
		return nil, err
	}

	bpb, err := ParseBPB(sector0[:])
	if err != nil {
		return nil, err
	}

	return &Volume{br: br, bpb: bpb}, nil
}

// BPB returns the volume's parsed boot sector.
func (v *Volume) BPB() *BPB { return v.bpb }

// Root returns the synthetic root directory record: first cluster is the
// BPB's root_cluster, attribute DIRECTORY (spec.md §4.6).
func (v *Volume) Root() *DirEntry {
	return &DirEntry{
		ShortName:    "/",
		Attributes:   AttrDirectory,
		FirstCluster: v.bpb.RootCluster(),
	}
}

// ListDir enumerates dir's cluster chain, returning every logical record
// except volume-label entries, which are filtered from listings but not
// from by-name lookup (spec.md §4.4, policy: skip).
func (v *Volume) ListDir(dir *DirEntry) ([]*DirEntry, error) {
	stream := NewDirStream(v.br, v.bpb, dir.FirstCluster)

	var out []*DirEntry
	for {
		entry, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.IsVolumeID() && !entry.IsDir() {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// lookupChild enumerates dir for a member whose Name() equals name. Volume
// label entries are visible here even though ListDir filters them (spec.md
// §4.4: "filtered from directory listings but not from lookup-by-name").
func (v *Volume) lookupChild(dir *DirEntry, name string) (*DirEntry, error) {
	stream := NewDirStream(v.br, v.bpb, dir.FirstCluster)

	for {
		entry, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, errNotFound()
		}
		if entry.Name() == name {
			return entry, nil
		}
	}
}

// ResolveByPath walks an absolute pathname component-by-component from root
// (spec.md §4.6). An empty path, or "/", resolves to root.
func (v *Volume) ResolveByPath(path string) (*DirEntry, error) {
	if path != "" && !strings.HasPrefix(path, "/") {
		return nil, errNotFound()
	}

	current := v.Root()
	for _, comp := range strings.Split(path, "/") {
		if comp == "" {
			continue
		}
		if !current.IsDir() {
			return nil, errNotADir()
		}
		child, err := v.lookupChild(current, comp)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// NClusters counts the number of in-chain clusters for dir, used for the
// FUSE attribute reply's `blocks` field.
func (v *Volume) NClusters(dir *DirEntry) (uint64, error) {
	if dir.FirstCluster == 0 {
		return 0, nil
	}
	walker := NewChainWalker(v.br, v.bpb, dir.FirstCluster)
	var n uint64
	for {
		_, ok := walker.Next()
		if !ok {
			break
		}
		n++
	}
	return n, walker.Err()
}

// ReadFile reads up to len(buf) bytes from dir starting at offset, clamped
// to dir's file size (spec.md §4.5).
func (v *Volume) ReadFile(dir *DirEntry, offset uint64, buf []byte) (int, error) {
	return ReadFile(v.br, v.bpb, dir.FirstCluster, uint64(dir.FileSize), offset, buf)
}
