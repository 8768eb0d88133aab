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

//go:build linux || darwin

package fuseadapter

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fuseutil"
)

// MountOptions carries the kernel-visible mount flags spec.md §4.10 exposes
// as CLI flags.
type MountOptions struct {
	AllowOther  bool
	AutoUnmount bool
}

// Mount opens the FUSE connection at mountpoint and serves srv's callbacks
// against raw kernel requests until a termination signal leads to a
// successful unmount, or the unmount attempts run out. It returns only in
// response to a signal: if the connection closes on its own, the serve loop
// stops but Mount keeps waiting for a signal. It never hands node or handle
// bookkeeping to the bazil.org/fuse library: srv owns both (spec.md §4.7).
func Mount(mountpoint string, srv *Server, opts MountOptions) error {
	created, err := PrepareMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	mountOpts := []fuse.MountOption{
		fuse.ReadOnly(),
		fuse.FSName("fat32ro"),
		fuse.Subtype("fat32ro"),
	}
	if opts.AllowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}
	if opts.AutoUnmount {
		mountOpts = append(mountOpts, fuse.AutoUnmount())
	}

	c, err := fuse.Mount(mountpoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("fuse mount %s: %w", mountpoint, err)
	}
	defer c.Close()

	go serve(c, srv)

	return waitForUmount(mountpoint)
}

// serve drains c's request channel, dispatching each request to its own
// goroutine so a slow read never blocks an unrelated lookup.
func serve(c *fuse.Conn, srv *Server) {
	for {
		req, err := c.ReadRequest()
		if err != nil {
			if err != io.EOF {
				log.Printf("fuseadapter: read request: %v", err)
			}
			return
		}
		go dispatch(srv, req)
	}
}

func dispatch(srv *Server, req fuse.Request) {
	switch r := req.(type) {
	case *fuse.LookupRequest:
		handleLookup(srv, r)
	case *fuse.GetattrRequest:
		handleGetattr(srv, r)
	case *fuse.OpenRequest:
		handleOpen(srv, r)
	case *fuse.ReadRequest:
		handleRead(srv, r)
	case *fuse.ReleaseRequest:
		handleRelease(srv, r)
	default:
		req.RespondError(fuse.Errno(syscall.ENOSYS))
	}
}

func toAttr(a Attr, cfg Config) fuse.Attr {
	mode := cfg.Perm
	if a.IsDir {
		mode |= os.ModeDir
	}
	return fuse.Attr{
		Inode:     a.Inode,
		Size:      a.Size,
		Blocks:    a.Blocks,
		Atime:     a.Atime,
		Mtime:     a.Mtime,
		Ctime:     a.Ctime,
		Crtime:    a.Crtime,
		Mode:      mode,
		Nlink:     1,
		Uid:       cfg.UID,
		Gid:       cfg.GID,
		BlockSize: cfg.ClusterSize,
	}
}

func accessFlagsOf(flags fuse.OpenFlags) AccessFlags {
	return AccessFlags{
		WriteOnly: flags&fuse.OpenWriteOnly != 0,
		ReadWrite: flags&fuse.OpenReadWrite != 0,
		Truncate:  flags&fuse.OpenTruncate != 0,
	}
}

func handleLookup(srv *Server, r *fuse.LookupRequest) {
	ino, attr, err := srv.Lookup(uint64(r.Node), r.Name)
	if err != nil {
		r.RespondError(errnoFor(err))
		return
	}
	resp := &fuse.LookupResponse{Node: fuse.NodeID(ino)}
	resp.Attr = toAttr(attr, srv.cfg)
	r.Respond(resp)
}

func handleGetattr(srv *Server, r *fuse.GetattrRequest) {
	attr, err := srv.Getattr(uint64(r.Node))
	if err != nil {
		r.RespondError(errnoFor(err))
		return
	}
	resp := &fuse.GetattrResponse{Attr: toAttr(attr, srv.cfg)}
	r.Respond(resp)
}

func handleOpen(srv *Server, r *fuse.OpenRequest) {
	af := accessFlagsOf(r.Flags)

	if r.Dir {
		h, err := srv.Opendir(uint64(r.Node), af)
		if err != nil {
			r.RespondError(errnoFor(err))
			return
		}
		r.Respond(&fuse.OpenResponse{Handle: fuse.HandleID(h)})
		return
	}

	h, err := srv.Open(uint64(r.Node), af)
	if err != nil {
		r.RespondError(errnoFor(err))
		return
	}
	r.Respond(&fuse.OpenResponse{Handle: fuse.HandleID(h)})
}

func handleRead(srv *Server, r *fuse.ReadRequest) {
	if r.Dir {
		handleReaddir(srv, r)
		return
	}

	data, err := srv.Read(uint64(r.Handle), r.Offset, r.Size)
	if err != nil {
		r.RespondError(errnoFor(err))
		return
	}
	r.Respond(&fuse.ReadResponse{Data: data})
}

func handleReaddir(srv *Server, r *fuse.ReadRequest) {
	entries, err := srv.Readdir(uint64(r.Node), uint64(r.Handle))
	if err != nil {
		r.RespondError(errnoFor(err))
		return
	}

	dirs := make([]fuseutil.Dirent, 0, len(entries))
	for _, e := range entries {
		typ := fuseutil.DT_File
		if e.IsDir {
			typ = fuseutil.DT_Dir
		}
		dirs = append(dirs, fuseutil.Dirent{
			Inode: e.Inode,
			Name:  e.Name,
			Type:  typ,
		})
	}

	resp := &fuse.ReadResponse{}
	fuseutil.HandleRead(r, resp, dirs)
	r.Respond(resp)
}

func handleRelease(srv *Server, r *fuse.ReleaseRequest) {
	var err error
	if r.Dir {
		err = srv.Releasedir(uint64(r.Handle))
	} else {
		err = srv.Release(uint64(r.Handle))
	}
	if err != nil {
		r.RespondError(errnoFor(err))
		return
	}
	r.Respond()
}

func waitForUmount(mountpoint string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	const maxUnmountRetries = 3
	attempts := 0
	for sig := range sigc {
		log.Printf("fuseadapter: signal received: %v", sig)

		if attempts >= maxUnmountRetries {
			return fmt.Errorf("fuseadapter: unmount retries exceeded for %s", mountpoint)
		}

		if err := fuse.Unmount(mountpoint); err == nil {
			log.Println("fuseadapter: unmounted")
			return nil
		} else {
			attempts++
			log.Printf("fuseadapter: unmount failed: %v (%d/%d)", err, attempts, maxUnmountRetries)
		}
	}
	return nil
}

// PrepareMountpoint ensures mountpoint exists as an empty directory,
// creating it if necessary. Returns true if it created the directory.
func PrepareMountpoint(mountpoint string) (bool, error) {
	finfo, err := os.Stat(mountpoint)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(mountpoint, 0755); err != nil {
			return false, fmt.Errorf("create mountpoint %s: %w", mountpoint, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat mountpoint %s: %w", mountpoint, err)
	}
	if !finfo.IsDir() {
		return false, fmt.Errorf("mountpoint %s is not a directory", mountpoint)
	}

	empty, err := isDirEmpty(mountpoint)
	if err != nil {
		return false, fmt.Errorf("check mountpoint %s: %w", mountpoint, err)
	}
	if !empty {
		return false, fmt.Errorf("mountpoint %s is not empty", mountpoint)
	}
	return false, nil
}

func isDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	entries, err := f.Readdir(1)
	if err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
