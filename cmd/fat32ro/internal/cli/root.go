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

// Package cli is the fat32ro command-line entry point: it mounts a FAT32
// device or image read-only at a given directory.
package cli

import (
	"github.com/spf13/cobra"
)

const AppName = "fat32ro"

// Execute builds and runs the root command.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:          AppName + " [flags] <device-or-image> <mount-point>",
		Short:        AppName + " - read-only FUSE driver for FAT32 volumes",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runMount,
	}

	flags := rootCmd.Flags()
	flags.Bool("allow-other", false, "allow users other than the one that ran fat32ro to access the mount")
	flags.Bool("auto-unmount", false, "ask the kernel to unmount on process exit")
	flags.Int("partition", 0, "1-based MBR partition number to mount from a whole-disk image (0 = auto-detect the first FAT32 partition, or treat the source as a bare volume if unpartitioned)")
	flags.Uint32("uid", 0, "uid reported for every file and directory (default: the mounting process's own uid)")
	flags.Uint32("gid", 0, "gid reported for every file and directory (default: the mounting process's own gid)")
	flags.Bool("rw", false, "present for symmetry with other mount tools; always rejected, this driver is read-only")
	flags.String("log-level", "INFO", "DEBUG, INFO, WARN, or ERROR")

	return rootCmd.Execute()
}
