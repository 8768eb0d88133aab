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
	"syscall"

	"bazil.org/fuse"

	"github.com/sscafiti/fat32ro/internal/fat32"
)

// errnoFor maps a core or adapter error to the kernel errno the request
// response carries, per spec.md §7.
func errnoFor(err error) fuse.Errno {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrAccessDenied) {
		return fuse.Errno(syscall.EACCES)
	}

	kind, ok := fat32.KindOf(err)
	if !ok {
		return fuse.Errno(syscall.EIO)
	}

	switch kind {
	case fat32.KindNotFound:
		return fuse.Errno(syscall.ENOENT)
	case fat32.KindNotADir:
		return fuse.Errno(syscall.ENOTDIR)
	case fat32.KindIsDir:
		return fuse.Errno(syscall.EISDIR)
	case fat32.KindInvalidFileHandle:
		return fuse.Errno(syscall.EBADF)
	default:
		return fuse.Errno(syscall.EIO)
	}
}
