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
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sscafiti/fat32ro/internal/disk"
	"github.com/sscafiti/fat32ro/internal/fat32"
	"github.com/sscafiti/fat32ro/internal/fuseadapter"
	"github.com/sscafiti/fat32ro/internal/logger"
	"github.com/sscafiti/fat32ro/internal/partition"
)

func runMount(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	if rw, _ := flags.GetBool("rw"); rw {
		return fmt.Errorf("--rw was given but this driver never mounts read-write")
	}

	levelName, _ := flags.GetString("log-level")
	log := logger.New(os.Stderr, logger.ParseLevel(levelName))

	sourcePath, mountpoint := args[0], args[1]

	dev, err := disk.Open(sourcePath)
	if err != nil {
		return err
	}
	defer dev.Close()

	log.Infof("opened %s (%s, sector size %d)", sourcePath, humanize.Bytes(uint64(dev.Size)), dev.SectorSize)

	blockReader, err := selectVolume(cmd, dev, log)
	if err != nil {
		return err
	}

	volume, err := fat32.Mount(blockReader)
	if err != nil {
		return fmt.Errorf("mount %s: %w", sourcePath, err)
	}
	log.Infof("volume geometry: %d bytes/cluster, root cluster %d", volume.BPB().BytesPerCluster(), volume.BPB().RootCluster())

	uid, gid := resolveOwner(flags)
	allowOther, _ := flags.GetBool("allow-other")
	autoUnmount, _ := flags.GetBool("auto-unmount")

	srv := fuseadapter.New(volume, fuseadapter.Config{
		UID:  uid,
		GID:  gid,
		Perm: 0o644, // fixed for a read-only mount, spec.md §6
	})

	log.Infof("mounting %s at %s (read-only)", sourcePath, mountpoint)
	return fuseadapter.Mount(mountpoint, srv, fuseadapter.MountOptions{
		AllowOther:  allowOther,
		AutoUnmount: autoUnmount,
	})
}

// resolveOwner returns the uid/gid to report for every file and directory:
// the flag value if the user passed one explicitly, else the mounting
// process's own uid/gid (SPEC_FULL.md §4.10).
func resolveOwner(flags *pflag.FlagSet) (uint32, uint32) {
	uid, _ := flags.GetUint32("uid")
	gid, _ := flags.GetUint32("gid")
	if !flags.Changed("uid") {
		uid = uint32(os.Getuid())
	}
	if !flags.Changed("gid") {
		gid = uint32(os.Getgid())
	}
	return uid, gid
}

// selectVolume returns a BlockReader positioned at the start of the FAT32
// volume: either the whole device (if --partition=0 and sector 0 is a valid
// FAT32 BPB, if it has no MBR, or if --partition=0 and no FAT32 entry was
// found), or a byte-range view of the chosen partition (SPEC_FULL.md §4.8).
func selectVolume(cmd *cobra.Command, dev *disk.Device, log *logger.Logger) (fat32.BlockReader, error) {
	partIdx, _ := cmd.Flags().GetInt("partition")

	var sector0 [512]byte
	if _, err := dev.ReadAt(sector0[:], 0); err != nil {
		return nil, fmt.Errorf("read MBR candidate sector: %w", err)
	}

	if partIdx == 0 {
		if _, err := fat32.ParseBPB(sector0[:]); err == nil {
			log.Debugf("%s starts with a valid FAT32 BPB; treating it as a bare volume", dev.Path)
			return dev, nil
		}
	}

	table, err := partition.Parse(sector0[:])
	if err != nil {
		log.Debugf("no MBR on %s (%v); treating it as a bare FAT32 volume", dev.Path, err)
		return dev, nil
	}

	var entry partition.Entry
	if partIdx > 0 {
		entry, err = table.ByIndex(partIdx)
		if err != nil {
			return nil, err
		}
		if entry.Type.IsFAT16() {
			return nil, fmt.Errorf("partition %d on %s is FAT16 (%s); FAT16 is not supported", partIdx, dev.Path, entry)
		}
	} else {
		var ok bool
		entry, ok = table.FirstFAT32()
		if !ok {
			if fat16, found := table.FirstFAT16(); found {
				return nil, fmt.Errorf("partition table on %s has a FAT16 entry (%s); FAT16 is not supported, pass --partition to target a different entry", dev.Path, fat16)
			}
			log.Debugf("MBR present on %s but no FAT32 entry; treating it as a bare volume", dev.Path)
			return dev, nil
		}
	}

	log.Infof("using partition: %s", entry)
	return io.NewSectionReader(dev, entry.StartByte(), int64(entry.Size())), nil
}
