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

// Package media discovers removable FAT32 partitions and makes exactly one
// of them accessible as the staging destination, undoing on release any
// mount this process created itself.
package media

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoRemovableMedia is returned when no removable FAT32 partition is
	// attached.
	ErrNoRemovableMedia = errors.New("no removable FAT32 media found")
	// ErrNoAccessPointAvailable is returned when every access point
	// designator in the configured range is already a mountpoint.
	ErrNoAccessPointAvailable = errors.New("no free access point designator")
)

// Candidate is one removable partition suitable for staging.
type Candidate struct {
	// Device is the kernel name, e.g. "sdb1".
	Device string
	// DevicePath is the device node, e.g. "/dev/sdb1".
	DevicePath string
	// Label is the filesystem label, best effort.
	Label string
	// Filesystem is the probed or mounted filesystem type, e.g. "vfat".
	Filesystem string
	// Mountpoint is non-empty when the partition is already mounted.
	Mountpoint string
	// SizeBytes is the partition size.
	SizeBytes uint64
}

// Mounted reports whether the partition is already accessible.
func (c Candidate) Mounted() bool {
	return c.Mountpoint != ""
}

// MountEntry is one row of the system mount table.
type MountEntry struct {
	Device     string
	Mountpoint string
	Fstype     string
}

// CandidateSource discovers staging candidates and reads the mount table.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]Candidate, error)
	MountTable(ctx context.Context) ([]MountEntry, error)
}

// Chooser picks the index of one candidate. It is consulted on every
// resolve, including single-candidate lists, so preselecting choosers can
// reject a lone mismatched device.
type Chooser func(ctx context.Context, candidates []Candidate) (int, error)

// AccessPointLease records how a staging destination became accessible.
// Only leases for mounts this process created are ever torn down.
type AccessPointLease struct {
	// AccessPoint is the directory holding the filesystem root.
	AccessPoint string
	// Device is the partition backing the access point.
	Device string
	// WasPreExisting is true when the partition was already mounted before
	// this session touched it.
	WasPreExisting bool

	// createdDir tracks whether this session made the designator directory
	// and so should remove it again.
	createdDir bool
}

// BIOS flash utilities read FAT32 only, so anything else is filtered out
// during discovery.
var fatFilesystems = map[string]struct{}{
	"vfat":  {},
	"fat":   {},
	"fat32": {},
	"msdos": {},
}

func isFATFilesystem(fstype string) bool {
	_, ok := fatFilesystems[strings.ToLower(strings.TrimSpace(fstype))]
	return ok
}
