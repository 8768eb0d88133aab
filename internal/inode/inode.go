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

// Package inode assigns stable integer inodes to paths, bridging the
// FAT32 driver's path-addressed directory tree to the kernel's inode-addressed
// callback surface. It is not safe for concurrent use on its own; callers
// (the fuseadapter package) serialize access behind their own lock, the way
// spec.md §4.7 describes.
package inode

import "path"

// Root is the inode pinned to "/" (spec.md §3: "Inode 1 is pinned to /").
const Root uint64 = 1

// Resolver is a bijection between positive 64-bit inodes and absolute path
// strings, plus a parent map. Inodes are allocated monotonically and never
// reused within a mount.
type Resolver struct {
	pathToInode map[string]uint64
	inodeToPath map[uint64]string
	parentOf    map[uint64]uint64
	next        uint64
}

// New returns a Resolver with only the root inode registered.
func New() *Resolver {
	r := &Resolver{
		pathToInode: make(map[string]uint64),
		inodeToPath: make(map[uint64]string),
		parentOf:    make(map[uint64]uint64),
		next:        Root,
	}
	r.pathToInode["/"] = Root
	r.inodeToPath[Root] = "/"
	r.parentOf[Root] = Root // root's parent is root
	return r
}

// Path returns the absolute path registered for ino. Callers must only pass
// inodes obtained from a prior GetOrAssign; an unknown inode is a caller bug
// and panics (spec.md §4.7).
func (r *Resolver) Path(ino uint64) string {
	p, ok := r.inodeToPath[ino]
	if !ok {
		panic("inode: unknown inode")
	}
	return p
}

// GetOrAssign resolves name within parent. "." returns parent; ".." returns
// parent's own parent (root's parent is root); otherwise it returns the
// existing inode for the joined path if one was already assigned, or
// allocates, registers, and returns a new one.
func (r *Resolver) GetOrAssign(parent uint64, name string) uint64 {
	switch name {
	case ".":
		return parent
	case "..":
		return r.parentOf[parent]
	}

	parentPath := r.Path(parent)
	childPath := path.Join(parentPath, name)

	if ino, ok := r.pathToInode[childPath]; ok {
		return ino
	}

	r.next++
	ino := r.next

	r.pathToInode[childPath] = ino
	r.inodeToPath[ino] = childPath
	r.parentOf[ino] = parent
	return ino
}
