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
	"errors"
	"fmt"
)

// Kind classifies the errors the core can surface to an adapter. Adapters
// map each Kind to a kernel errno; see the fuseadapter package.
type Kind int

const (
	_ Kind = iota
	KindIOError
	KindInvalidBPB
	KindBadCluster
	KindFileCorrupt
	KindNotFound
	KindIsDir
	KindNotADir
	KindInvalidFileHandle
)

// Error is the concrete error type returned by every core operation. It
// carries enough associated data (reason, offending cluster, handle number)
// to survive into a log line, the way the original Fat32Error enum did.
type Error struct {
	Kind    Kind
	Reason  string
	Cluster uint32
	Handle  uint64
	Cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindIOError:
		if e.Cause != nil {
			return fmt.Sprintf("fat32: I/O error: %v", e.Cause)
		}
		return "fat32: I/O error"
	case KindInvalidBPB:
		return fmt.Sprintf("fat32: invalid BPB: %s", e.Reason)
	case KindBadCluster:
		return fmt.Sprintf("fat32: bad cluster 0x%X", e.Cluster)
	case KindFileCorrupt:
		return "fat32: file is corrupt (chain ended before size was satisfied)"
	case KindNotFound:
		return "fat32: not found"
	case KindIsDir:
		return "fat32: is a directory"
	case KindNotADir:
		return "fat32: not a directory"
	case KindInvalidFileHandle:
		return fmt.Sprintf("fat32: invalid file handle %d", e.Handle)
	default:
		return "fat32: unknown error"
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func errIO(cause error) error {
	return &Error{Kind: KindIOError, Cause: cause}
}

func errInvalidBPB(reason string) error {
	return &Error{Kind: KindInvalidBPB, Reason: reason}
}

func errBadCluster(cluster uint32) error {
	return &Error{Kind: KindBadCluster, Cluster: cluster}
}

func errFileCorrupt() error {
	return &Error{Kind: KindFileCorrupt}
}

func errNotFound() error {
	return &Error{Kind: KindNotFound}
}

func errIsDir() error {
	return &Error{Kind: KindIsDir}
}

func errNotADir() error {
	return &Error{Kind: KindNotADir}
}

func errInvalidFileHandle(h uint64) error {
	return &Error{Kind: KindInvalidFileHandle, Handle: h}
}

// ErrInvalidFileHandle constructs the InvalidFileHandle error for handle h.
// Exported so the handle package, which owns handle allocation, can report
// stale or unknown handles without duplicating the Kind/Error machinery.
func ErrInvalidFileHandle(h uint64) error {
	return errInvalidFileHandle(h)
}

// ErrNotADir, ErrIsDir and ErrNotFound are exported for the fuseadapter
// package, which performs its own directory/non-directory checks ahead of
// calling into the core (e.g. opendir on a plain file) and needs to report
// the same Kind the core itself would have.
func ErrNotADir() error  { return errNotADir() }
func ErrIsDir() error    { return errIsDir() }
func ErrNotFound() error { return errNotFound() }

// KindOf extracts the Kind of err if it (or something it wraps) is a *Error.
// Adapters use this to choose an errno without importing this package's
// internals.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
