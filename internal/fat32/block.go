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

import "io"

// BlockReader is the block-device read primitive the core consumes. It is a
// plain positional read, equivalent to a POSIX pread: it must not advance
// any implicit cursor and must be safe to call from multiple goroutines at
// once. This is treated as an external collaborator (spec.md §1); the core
// never wraps it in a cache.
type BlockReader interface {
	io.ReaderAt
}

// readExact reads exactly len(buf) bytes at offset off, treating any short
// read as an I/O error (spec.md §4.1: "callers treat a short read at sector
// granularity as an I/O error").
func readExact(br BlockReader, buf []byte, off int64) error {
	n, err := br.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return errIO(err)
	}
	if n != len(buf) {
		return errIO(io.ErrUnexpectedEOF)
	}
	return nil
}
