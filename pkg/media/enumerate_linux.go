// FlashPrep
// Copyright (c) 2026 The FlashPrep Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FlashPrep.
//
// FlashPrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FlashPrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FlashPrep.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux

package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"
)

// Enumerator scans sysfs for partitions living on USB-attached disks. All
// roots and probes are overridable so tests can run against a fixture tree.
type Enumerator struct {
	// SysBlock is the whole-disk listing, normally /sys/block.
	SysBlock string
	// ClassBlock resolves device names to their full sysfs device path,
	// normally /sys/class/block.
	ClassBlock string
	// DevRoot is where device nodes live, normally /dev.
	DevRoot string
	// BlkidFn probes an unmounted device for filesystem properties.
	BlkidFn func(ctx context.Context, devicePath string) (map[string]string, error)
	// MountsFn reads the current mount table.
	MountsFn func(ctx context.Context) ([]MountEntry, error)
}

func NewEnumerator() *Enumerator {
	return &Enumerator{
		SysBlock:   "/sys/block",
		ClassBlock: "/sys/class/block",
		DevRoot:    "/dev",
		BlkidFn:    blkidExport,
		MountsFn:   systemMounts,
	}
}

// Candidates returns all FAT32 partitions on USB-attached disks, sorted by
// device name.
func (e *Enumerator) Candidates(ctx context.Context) ([]Candidate, error) {
	disks, err := os.ReadDir(e.SysBlock)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", e.SysBlock, err)
	}

	mounts, err := e.MountsFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("read mount table: %w", err)
	}
	byDevice := make(map[string]MountEntry, len(mounts))
	for _, m := range mounts {
		byDevice[m.Device] = m
	}

	var candidates []Candidate
	for _, d := range disks {
		name := d.Name()
		if !e.isUSB(name) {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(e.SysBlock, name))
		if err != nil {
			log.Debug().Err(err).Str("disk", name).Msg("cannot list disk partitions")
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), name) {
				continue
			}
			// Partition subdirs carry a "partition" file holding the index.
			partFile := filepath.Join(e.SysBlock, name, entry.Name(), "partition")
			if _, err := os.Stat(partFile); err != nil {
				continue
			}
			if cand, ok := e.inspect(ctx, name, entry.Name(), byDevice); ok {
				candidates = append(candidates, cand)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Device < candidates[j].Device
	})
	return candidates, nil
}

// MountTable returns the current mount table.
func (e *Enumerator) MountTable(ctx context.Context) ([]MountEntry, error) {
	return e.MountsFn(ctx)
}

// isUSB reports whether a block device sits on a USB transport, determined
// by its resolved sysfs device path passing through a usb controller
// segment.
func (e *Enumerator) isUSB(name string) bool {
	resolved, err := filepath.EvalSymlinks(filepath.Join(e.ClassBlock, name))
	if err != nil {
		return false
	}
	return strings.Contains(resolved, "/usb")
}

func (e *Enumerator) inspect(
	ctx context.Context, parent, part string, mounts map[string]MountEntry,
) (Candidate, bool) {
	devPath := filepath.Join(e.DevRoot, part)
	cand := Candidate{
		Device:     part,
		DevicePath: devPath,
		SizeBytes:  e.partitionSize(parent, part),
	}

	props, probeErr := e.BlkidFn(ctx, devPath)
	if probeErr == nil {
		cand.Label = props["LABEL"]
	}

	if m, ok := mounts[devPath]; ok {
		// The mount table is authoritative for mounted partitions.
		cand.Mountpoint = m.Mountpoint
		cand.Filesystem = m.Fstype
	} else {
		if probeErr != nil {
			log.Debug().Err(probeErr).Str("device", devPath).Msg("filesystem probe failed")
			return Candidate{}, false
		}
		cand.Filesystem = props["TYPE"]
	}

	if !isFATFilesystem(cand.Filesystem) {
		return Candidate{}, false
	}
	return cand, true
}

// partitionSize returns the partition size in bytes, or 0 when sysfs does
// not expose it. Sector counts in sysfs are always 512-byte units.
func (e *Enumerator) partitionSize(parent, part string) uint64 {
	data, err := os.ReadFile(filepath.Join(e.SysBlock, parent, part, "size"))
	if err != nil {
		return 0
	}
	sectors, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return sectors * 512
}

// blkidExport probes a device with blkid's key=value export format. Works
// on unmounted devices, which is the case that matters here.
func blkidExport(ctx context.Context, devicePath string) (map[string]string, error) {
	out, err := exec.CommandContext(ctx, "blkid", "-o", "export", devicePath).Output()
	if err != nil {
		return nil, fmt.Errorf("blkid %s: %w", devicePath, err)
	}

	props := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		props[key] = value
	}
	return props, nil
}

func systemMounts(ctx context.Context) ([]MountEntry, error) {
	parts, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list mounted partitions: %w", err)
	}
	entries := make([]MountEntry, 0, len(parts))
	for _, p := range parts {
		entries = append(entries, MountEntry{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
		})
	}
	return entries, nil
}
