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

package staging

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchAreaPaths(t *testing.T) {
	t.Parallel()

	scratch := NewScratchArea("/tmp/flashprep-staging")
	assert.Equal(t, "/tmp/flashprep-staging/download", scratch.DownloadDir())
	assert.Equal(t, "/tmp/flashprep-staging/extracted", scratch.ExtractDir())
}

func TestScratchRecreateClearsStaleContents(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	scratch := NewScratchArea("/scratch")

	// Leftovers from a run that died halfway.
	require.NoError(t, afero.WriteFile(fs,
		"/scratch/download/old.zip.part", []byte("stale"), 0o644))

	require.NoError(t, scratch.Recreate(fs))

	exists, err := afero.Exists(fs, "/scratch/download/old.zip.part")
	require.NoError(t, err)
	assert.False(t, exists)

	for _, dir := range []string{scratch.DownloadDir(), scratch.ExtractDir()} {
		ok, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}
}

func TestScratchRemoveIdempotent(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	scratch := NewScratchArea("/scratch")
	require.NoError(t, scratch.Recreate(fs))

	require.NoError(t, scratch.Remove(fs))
	require.NoError(t, scratch.Remove(fs))

	exists, err := afero.DirExists(fs, "/scratch")
	require.NoError(t, err)
	assert.False(t, exists)
}
