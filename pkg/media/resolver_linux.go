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
	"path/filepath"

	"github.com/FlashPrepProject/flashprep-core/pkg/config"
	"github.com/FlashPrepProject/flashprep-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Resolver selects one staging candidate and leases an access point for it.
// Leases accumulate until Release, which undoes only what this process did.
type Resolver struct {
	source    CandidateSource
	choose    Chooser
	mountFn   func(source, target, fstype string) error
	unmountFn func(target string) error
	mountRoot string
	maxMounts int

	mu     syncutil.Mutex
	leases []AccessPointLease
}

// NewResolver builds a resolver over the given candidate source. A nil
// chooser selects the first candidate.
func NewResolver(cfg *config.Instance, source CandidateSource, choose Chooser) *Resolver {
	if choose == nil {
		choose = func(_ context.Context, _ []Candidate) (int, error) {
			return 0, nil
		}
	}
	return &Resolver{
		source:    source,
		choose:    choose,
		mountRoot: cfg.MountRoot(),
		maxMounts: cfg.MaxMounts(),
		mountFn: func(source, target, fstype string) error {
			return unix.Mount(source, target, fstype, 0, "")
		},
		unmountFn: func(target string) error {
			return unix.Unmount(target, 0)
		},
	}
}

// List returns the current staging candidates without touching any of them.
func (r *Resolver) List(ctx context.Context) ([]Candidate, error) {
	return r.source.Candidates(ctx)
}

// Resolve discovers candidates, picks one, and returns a lease for an
// access point where the partition's filesystem is reachable. Partitions
// already mounted elsewhere are used in place.
func (r *Resolver) Resolve(ctx context.Context) (*AccessPointLease, error) {
	candidates, err := r.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemovableMedia, err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoRemovableMedia
	}

	idx, err := r.choose(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("select media: %w", err)
	}
	if idx < 0 || idx >= len(candidates) {
		return nil, fmt.Errorf("media selection index %d out of range", idx)
	}
	selected := candidates[idx]

	log.Info().
		Str("device", selected.DevicePath).
		Str("label", selected.Label).
		Str("filesystem", selected.Filesystem).
		Bool("mounted", selected.Mounted()).
		Msg("selected staging media")

	if selected.Mounted() {
		return r.recordLease(AccessPointLease{
			AccessPoint:    selected.Mountpoint,
			Device:         selected.DevicePath,
			WasPreExisting: true,
		}), nil
	}

	target, err := r.freeDesignator(ctx)
	if err != nil {
		return nil, err
	}

	createdDir := false
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("create access point %s: %w", target, err)
		}
		createdDir = true
	}

	if err := r.mountFn(selected.DevicePath, target, selected.Filesystem); err != nil {
		if createdDir {
			_ = os.Remove(target)
		}
		return nil, fmt.Errorf("mount %s at %s: %w", selected.DevicePath, target, err)
	}

	log.Info().Str("device", selected.DevicePath).Str("accessPoint", target).
		Msg("mounted staging media")

	return r.recordLease(AccessPointLease{
		AccessPoint: target,
		Device:      selected.DevicePath,
		createdDir:  createdDir,
	}), nil
}

// freeDesignator returns the lowest access point designator not currently
// in the mount table.
func (r *Resolver) freeDesignator(ctx context.Context) (string, error) {
	mounts, err := r.source.MountTable(ctx)
	if err != nil {
		return "", fmt.Errorf("read mount table: %w", err)
	}
	used := make(map[string]struct{}, len(mounts))
	for _, m := range mounts {
		used[m.Mountpoint] = struct{}{}
	}

	for i := 0; i < r.maxMounts; i++ {
		designator := filepath.Join(r.mountRoot, fmt.Sprintf("usb%d", i))
		if _, taken := used[designator]; !taken {
			return designator, nil
		}
	}
	return "", fmt.Errorf("%w: all %d designators under %s in use",
		ErrNoAccessPointAvailable, r.maxMounts, r.mountRoot)
}

func (r *Resolver) recordLease(lease AccessPointLease) *AccessPointLease {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases = append(r.leases, lease)
	return &lease
}

// Release undoes every mount this resolver created, newest first.
// Pre-existing mounts are left alone. Failures are logged and swallowed so
// a release can never mask the session outcome. Safe to call repeatedly.
func (r *Resolver) Release() {
	r.mu.Lock()
	leases := r.leases
	r.leases = nil
	r.mu.Unlock()

	for i := len(leases) - 1; i >= 0; i-- {
		lease := leases[i]
		if lease.WasPreExisting {
			continue
		}
		if err := r.unmountFn(lease.AccessPoint); err != nil {
			log.Warn().Err(err).Str("accessPoint", lease.AccessPoint).
				Msg("unmount failed during release")
			continue
		}
		if lease.createdDir {
			if err := os.Remove(lease.AccessPoint); err != nil {
				log.Warn().Err(err).Str("accessPoint", lease.AccessPoint).
					Msg("cannot remove access point dir")
			}
		}
		log.Info().Str("accessPoint", lease.AccessPoint).Msg("released staging media")
	}
}
