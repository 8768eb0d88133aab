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

// Package fuseadapter translates kernel filesystem callbacks into calls
// against the read-only fat32 core, owning the inode table and handle
// allocator the core itself has no opinion about (spec.md §4.7). The
// dispatch loop that actually talks to the kernel lives in platform-specific
// files; this file holds the platform-independent operation logic so it can
// be exercised by tests without a real mount.
package fuseadapter

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/handle"
	"github.com/sscafiti/fat32ro/internal/inode"
)

// ErrAccessDenied is returned when a kernel request asks for write access
// (or execution) against this read-only mount. It is not a fat32.Error —
// the core has no notion of access modes — so the dispatch layer maps it to
// EACCES directly rather than through fat32.KindOf.
var ErrAccessDenied = errors.New("fuseadapter: write access denied on read-only mount")

// Attr is the subset of kernel inode attributes the driver can speak to,
// independent of any particular FUSE binding's response type (spec.md §6).
type Attr struct {
	Inode  uint64
	Size   uint64
	Blocks uint64
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
	Crtime time.Time
	IsDir  bool
}

// Dirent is one readdir row.
type Dirent struct {
	Inode uint64
	Name  string
	IsDir bool
}

// Config carries the mount-time options that shape attribute replies.
type Config struct {
	UID  uint32
	GID  uint32
	Perm os.FileMode

	// ClusterSize is filled in by New from the volume's own BPB; a caller
	// need not set it.
	ClusterSize uint32
}

// Server is the adapter's kernel-facing surface. One Server is created per
// mounted volume; it is safe for concurrent use from multiple request
// dispatch goroutines.
type Server struct {
	mu      sync.Mutex
	volume  *fat32.Volume
	inodes  *inode.Resolver
	handles *handle.Table
	cfg     Config
}

// New wraps an already-mounted Volume for kernel callback dispatch.
func New(volume *fat32.Volume, cfg Config) *Server {
	cfg.ClusterSize = volume.BPB().BytesPerCluster()
	return &Server{
		volume:  volume,
		inodes:  inode.New(),
		handles: handle.New(volume),
		cfg:     cfg,
	}
}

// resolve returns the DirEntry backing ino. Callers hold s.mu.
func (s *Server) resolve(ino uint64) (*fat32.DirEntry, error) {
	return s.volume.ResolveByPath(s.inodes.Path(ino))
}

func (s *Server) attrOf(ino uint64, entry *fat32.DirEntry) (Attr, error) {
	blocks, err := s.volume.NClusters(entry)
	if err != nil {
		return Attr{}, err
	}

	mtime := entry.WriteTime
	if mtime.IsZero() {
		mtime = entry.CreateTime
	}

	return Attr{
		Inode:  ino,
		Size:   uint64(entry.FileSize),
		Blocks: blocks,
		Atime:  entry.AccessDate,
		Mtime:  mtime,
		Ctime:  mtime, // ctime == mtime == write_time, spec.md §6
		Crtime: entry.CreateTime,
		IsDir:  entry.IsDir(),
	}, nil
}

// Lookup resolves name within the directory at parent, assigning it a stable
// inode if this is the first time it has been seen.
func (s *Server) Lookup(parent uint64, name string) (uint64, Attr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentEntry, err := s.resolve(parent)
	if err != nil {
		return 0, Attr{}, err
	}
	if !parentEntry.IsDir() {
		return 0, Attr{}, fat32.ErrNotADir()
	}

	childPath := s.inodes.Path(parent)
	child, err := s.volume.ResolveByPath(joinPath(childPath, name))
	if err != nil {
		return 0, Attr{}, err
	}

	ino := s.inodes.GetOrAssign(parent, name)
	attr, err := s.attrOf(ino, child)
	return ino, attr, err
}

// Getattr returns the attributes of ino.
func (s *Server) Getattr(ino uint64) (Attr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.resolve(ino)
	if err != nil {
		return Attr{}, err
	}
	return s.attrOf(ino, entry)
}

// AccessFlags mirrors the POSIX open(2) access-mode bits the adapter must
// reject for a read-only mount (spec.md §4.7).
type AccessFlags struct {
	WriteOnly bool
	ReadWrite bool
	Truncate  bool
	Exec      bool
}

func checkReadOnlyAccess(flags AccessFlags) error {
	if flags.WriteOnly || flags.ReadWrite || flags.Truncate {
		return ErrAccessDenied
	}
	return nil
}

// Opendir validates access and returns a directory handle over ino.
func (s *Server) Opendir(ino uint64, flags AccessFlags) (uint64, error) {
	if err := checkReadOnlyAccess(flags); err != nil {
		return 0, err
	}

	s.mu.Lock()
	entry, err := s.resolve(ino)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if !entry.IsDir() {
		return 0, fat32.ErrNotADir()
	}
	return s.handles.OpenDir(entry)
}

// Readdir returns every member of the directory behind handle h, lazily
// enumerated and cached on the first call for h. "." and ".." are
// synthesized here; the fat32 core has no notion of them.
func (s *Server) Readdir(parent, h uint64) ([]Dirent, error) {
	entries, err := s.handles.Entries(h)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Dirent, 0, len(entries)+2)
	out = append(out, Dirent{Inode: parent, Name: ".", IsDir: true})
	out = append(out, Dirent{Inode: s.inodes.GetOrAssign(parent, ".."), Name: "..", IsDir: true})

	for _, e := range entries {
		ino := s.inodes.GetOrAssign(parent, e.Name())
		out = append(out, Dirent{Inode: ino, Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

// Releasedir closes a directory handle.
func (s *Server) Releasedir(h uint64) error {
	return s.handles.CloseDir(h)
}

// Open validates access and returns a file handle over ino.
func (s *Server) Open(ino uint64, flags AccessFlags) (uint64, error) {
	if err := checkReadOnlyAccess(flags); err != nil {
		return 0, err
	}
	if flags.Exec {
		return 0, ErrAccessDenied
	}

	s.mu.Lock()
	entry, err := s.resolve(ino)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if entry.IsDir() {
		return 0, fat32.ErrIsDir()
	}
	return s.handles.Open(entry)
}

// Read serves a pread against the file behind handle h.
func (s *Server) Read(h uint64, offset int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := s.handles.Read(h, offset, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Release closes a file handle.
func (s *Server) Release(h uint64) error {
	return s.handles.Close(h)
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
