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

// Package disk opens the block device or image file backing a mount. Unlike
// a forensic recovery tool, this driver only ever opens its source
// read-only: there is no write path, no R/W-then-fallback retry, and no
// image-format sniffing beyond the MBR partition package already handles.
//
// Raw device access is platform-specific (ioctl on Linux, DeviceIoControl on
// Windows), so the actual open call is delegated to internal/fs, which
// already carries that split.
package disk

import (
	"fmt"
	"os"
	"runtime"

	fsx "github.com/sscafiti/fat32ro/internal/fs"
)

// DefaultSectorSize is assumed for regular files and for devices whose
// sector size cannot be queried.
const DefaultSectorSize = 512

// Device is an opened, read-only block source: a device node or a plain
// image file, both addressed the same way by the fat32 core.
type Device struct {
	Path       string
	SectorSize int64
	Size       int64
	IsDevice   bool

	file fsx.File
}

// ReadAt satisfies fat32.BlockReader.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	return d.file.ReadAt(p, off)
}

// Close releases the underlying file handle.
func (d *Device) Close() error {
	return d.file.Close()
}

// Open opens path read-only and determines its size and sector size. On
// Linux, device nodes are queried with BLKSSZGET/BLKGETSIZE64; elsewhere the
// sector size stays DefaultSectorSize. Plain image files use their regular
// file size, except on Windows, where internal/fs opens every path as a raw
// disk and takes its size from IOCTL_DISK_GET_DRIVE_GEOMETRY, so a path that
// is not a disk fails to stat.
func Open(path string) (*Device, error) {
	path = NormalizeVolumePath(path)

	file, err := fsx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}

	d := &Device{
		Path:       path,
		SectorSize: DefaultSectorSize,
		IsDevice:   info.Mode()&os.ModeDevice != 0,
		file:       file,
	}

	if d.IsDevice && runtime.GOOS == "linux" {
		if osFile, ok := file.(*os.File); ok {
			if sz, err := sectorSizeLinux(osFile); err == nil {
				d.SectorSize = sz
			}
			if sz, err := sizeLinux(osFile); err == nil {
				d.Size = sz
			}
		}
	}

	if d.Size == 0 {
		d.Size = info.Size()
	}

	if d.Size == 0 {
		file.Close()
		return nil, fmt.Errorf("disk: %s has zero size", path)
	}
	return d, nil
}
