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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/FlashPrepProject/flashprep-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	candidates []Candidate
	mounts     []MountEntry
	candErr    error
	mountErr   error
}

func (f *fakeSource) Candidates(_ context.Context) ([]Candidate, error) {
	return f.candidates, f.candErr
}

func (f *fakeSource) MountTable(_ context.Context) ([]MountEntry, error) {
	return f.mounts, f.mountErr
}

type mountCall struct {
	source string
	target string
	fstype string
}

// testResolver builds a resolver with recording mount/unmount fns and a
// mount root under the test temp dir.
func testResolver(t *testing.T, source CandidateSource, choose Chooser) (
	*Resolver, *[]mountCall, *[]string,
) {
	t.Helper()

	defaults := config.BaseDefaults
	defaults.Media.MountRoot = filepath.Join(t.TempDir(), "media")
	defaults.Media.MaxMounts = 4
	cfg, err := config.NewConfig(t.TempDir(), defaults)
	require.NoError(t, err)

	r := NewResolver(cfg, source, choose)
	mounts := &[]mountCall{}
	unmounts := &[]string{}
	r.mountFn = func(source, target, fstype string) error {
		*mounts = append(*mounts, mountCall{source: source, target: target, fstype: fstype})
		return nil
	}
	r.unmountFn = func(target string) error {
		*unmounts = append(*unmounts, target)
		return nil
	}
	return r, mounts, unmounts
}

func unmountedCandidate(name string) Candidate {
	return Candidate{
		Device:     name,
		DevicePath: "/dev/" + name,
		Label:      "FLASHPREP",
		Filesystem: "vfat",
		SizeBytes:  1024000 * 512,
	}
}

func TestResolveNoCandidates(t *testing.T) {
	r, _, _ := testResolver(t, &fakeSource{}, nil)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRemovableMedia)
}

func TestListLeavesDevicesUntouched(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{
		unmountedCandidate("sdb1"),
		unmountedCandidate("sdc1"),
	}}
	r, mounts, _ := testResolver(t, src, nil)

	candidates, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	assert.Empty(t, *mounts)
}

func TestResolveEnumerationFailure(t *testing.T) {
	r, _, _ := testResolver(t, &fakeSource{candErr: errors.New("sysfs gone")}, nil)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRemovableMedia)
}

func TestResolveUnmountedCandidate(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	r, mounts, _ := testResolver(t, src, nil)

	lease, err := r.Resolve(context.Background())
	require.NoError(t, err)

	want := filepath.Join(r.mountRoot, "usb0")
	assert.Equal(t, want, lease.AccessPoint)
	assert.Equal(t, "/dev/sdb1", lease.Device)
	assert.False(t, lease.WasPreExisting)

	require.Len(t, *mounts, 1)
	assert.Equal(t, mountCall{source: "/dev/sdb1", target: want, fstype: "vfat"}, (*mounts)[0])

	// The designator dir must exist while the lease is live.
	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveMountedCandidateUsedInPlace(t *testing.T) {
	mounted := unmountedCandidate("sdc1")
	mounted.Mountpoint = "/media/backup"
	src := &fakeSource{candidates: []Candidate{mounted}}
	r, mounts, _ := testResolver(t, src, nil)

	lease, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/media/backup", lease.AccessPoint)
	assert.True(t, lease.WasPreExisting)
	assert.Empty(t, *mounts)
}

func TestResolveSkipsTakenDesignators(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	r, _, _ := testResolver(t, src, nil)
	src.mounts = []MountEntry{
		{Device: "/dev/sdd1", Mountpoint: filepath.Join(r.mountRoot, "usb0"), Fstype: "vfat"},
		{Device: "/dev/sde1", Mountpoint: filepath.Join(r.mountRoot, "usb1"), Fstype: "vfat"},
	}

	lease, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.mountRoot, "usb2"), lease.AccessPoint)
}

func TestResolveAllDesignatorsTaken(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	r, _, _ := testResolver(t, src, nil)
	for i := 0; i < r.maxMounts; i++ {
		src.mounts = append(src.mounts, MountEntry{
			Device:     "/dev/other",
			Mountpoint: filepath.Join(r.mountRoot, fmt.Sprintf("usb%d", i)),
			Fstype:     "vfat",
		})
	}

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAccessPointAvailable)
}

func TestResolveChooserPicks(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{
		unmountedCandidate("sdb1"),
		unmountedCandidate("sdc1"),
	}}
	choose := func(_ context.Context, _ []Candidate) (int, error) { return 1, nil }
	r, mounts, _ := testResolver(t, src, choose)

	lease, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdc1", lease.Device)
	require.Len(t, *mounts, 1)
	assert.Equal(t, "/dev/sdc1", (*mounts)[0].source)
}

func TestResolveChooserError(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{
		unmountedCandidate("sdb1"),
		unmountedCandidate("sdc1"),
	}}
	choose := func(_ context.Context, _ []Candidate) (int, error) {
		return 0, context.Canceled
	}
	r, _, _ := testResolver(t, src, choose)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveChooserOutOfRange(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	choose := func(_ context.Context, _ []Candidate) (int, error) { return 5, nil }
	r, _, _ := testResolver(t, src, choose)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestResolveMountFailureRemovesCreatedDir(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	r, _, _ := testResolver(t, src, nil)
	r.mountFn = func(_, _, _ string) error { return errors.New("mount: permission denied") }

	_, err := r.Resolve(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(r.mountRoot, "usb0"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReleaseUndoesOwnMounts(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	r, mounts, unmounts := testResolver(t, src, nil)

	lease, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, *mounts, 1)

	r.Release()
	require.Len(t, *unmounts, 1)
	assert.Equal(t, lease.AccessPoint, (*unmounts)[0])

	_, statErr := os.Stat(lease.AccessPoint)
	assert.True(t, os.IsNotExist(statErr))

	// Releasing again must be a no-op.
	r.Release()
	assert.Len(t, *unmounts, 1)
}

func TestReleaseLeavesPreExistingMounts(t *testing.T) {
	mounted := unmountedCandidate("sdc1")
	mounted.Mountpoint = "/media/backup"
	src := &fakeSource{candidates: []Candidate{mounted}}
	r, _, unmounts := testResolver(t, src, nil)

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	r.Release()
	assert.Empty(t, *unmounts)
}

func TestReleaseKeepsDirWhenUnmountFails(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{unmountedCandidate("sdb1")}}
	r, _, _ := testResolver(t, src, nil)
	r.unmountFn = func(_ string) error { return errors.New("target is busy") }

	lease, err := r.Resolve(context.Background())
	require.NoError(t, err)

	r.Release()

	// Unmount failed, so the mountpoint dir has to stay put.
	_, statErr := os.Stat(lease.AccessPoint)
	assert.NoError(t, statErr)
}
