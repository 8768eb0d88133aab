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

// Package handle owns the opaque open-file and open-directory tables that
// sit between the kernel's fh values and the read-only fat32 core. Handles
// are allocated from a single monotonic counter with a free list so that a
// closed handle's number can be reused, the way spec.md §4.7 describes.
package handle

import (
	"sync"

	"github.com/sscafiti/fat32ro/internal/fat32"
)

// openDir holds a lazily populated readdir snapshot. entries is nil until
// the first Entries call, which fills it from Volume.ListDir and caches the
// result; readdir never re-scans afterward, so entries added or removed
// between opendir and releasedir are invisible to this handle once
// populated (spec.md §4.7; spec.md:130's Empty → Populated state machine).
type openDir struct {
	dir       *fat32.DirEntry
	entries   []*fat32.DirEntry
	populated bool
}

type openFile struct {
	entry *fat32.DirEntry
}

// Table is the mutex-protected aggregate of both tables plus the handle
// allocator. Every method is safe for concurrent use.
type Table struct {
	mu  sync.Mutex
	vol *fat32.Volume

	dirs  map[uint64]*openDir
	files map[uint64]*openFile

	next uint64
	free []uint64
}

// New returns an empty Table backed by vol.
func New(vol *fat32.Volume) *Table {
	return &Table{
		vol:   vol,
		dirs:  make(map[uint64]*openDir),
		files: make(map[uint64]*openFile),
	}
}

// alloc returns a fresh or recycled handle number. Callers hold t.mu.
func (t *Table) alloc() uint64 {
	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		return h
	}
	t.next++
	return t.next
}

// dealloc returns h to the free list. Callers hold t.mu.
func (t *Table) dealloc(h uint64) {
	t.free = append(t.free, h)
}

// OpenDir allocates a handle over dir without enumerating it. Listing is
// deferred to the first Entries call (spec.md:122-123): a directory whose
// cluster chain is corrupt fails at the first readdir, not at opendir.
func (t *Table) OpenDir(dir *fat32.DirEntry) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.alloc()
	t.dirs[h] = &openDir{dir: dir}
	return h, nil
}

// Entries returns the readdir snapshot for h, populating it from the
// volume on first call and caching the result. The snapshot never changes
// for the rest of the handle's lifetime, even if the directory is modified
// on disk afterward (spec.md §4.7). The listing is read under t.mu.
func (t *Table) Entries(h uint64) ([]*fat32.DirEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.dirs[h]
	if !ok {
		return nil, fat32.ErrInvalidFileHandle(h)
	}
	if !d.populated {
		entries, err := t.vol.ListDir(d.dir)
		if err != nil {
			return nil, err
		}
		d.entries = entries
		d.populated = true
	}
	return d.entries, nil
}

// CloseDir releases a directory handle.
func (t *Table) CloseDir(h uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.dirs[h]; !ok {
		return fat32.ErrInvalidFileHandle(h)
	}
	delete(t.dirs, h)
	t.dealloc(h)
	return nil
}

// Open returns a fresh handle over entry, which must not be a directory.
func (t *Table) Open(entry *fat32.DirEntry) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.alloc()
	t.files[h] = &openFile{entry: entry}
	return h, nil
}

// Read serves a pread against the file behind handle h.
func (t *Table) Read(h uint64, offset int64, buf []byte) (int, error) {
	t.mu.Lock()
	f, ok := t.files[h]
	t.mu.Unlock()

	if !ok {
		return 0, fat32.ErrInvalidFileHandle(h)
	}
	if offset < 0 {
		return 0, nil
	}
	return t.vol.ReadFile(f.entry, uint64(offset), buf)
}

// Close releases a file handle.
func (t *Table) Close(h uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.files[h]; !ok {
		return fat32.ErrInvalidFileHandle(h)
	}
	delete(t.files, h)
	t.dealloc(h)
	return nil
}
