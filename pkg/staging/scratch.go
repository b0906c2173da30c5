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
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ScratchArea is the working directory tree for one session. It is owned
// exclusively by the running session and never survives it.
type ScratchArea struct {
	Root string
}

func NewScratchArea(root string) ScratchArea {
	return ScratchArea{Root: root}
}

// DownloadDir holds the fetched archive.
func (s ScratchArea) DownloadDir() string {
	return filepath.Join(s.Root, "download")
}

// ExtractDir holds the unpacked archive contents.
func (s ScratchArea) ExtractDir() string {
	return filepath.Join(s.Root, "extracted")
}

// Recreate drops whatever a previous run left behind and builds an empty
// tree.
func (s ScratchArea) Recreate(fsys afero.Fs) error {
	if err := fsys.RemoveAll(s.Root); err != nil {
		return fmt.Errorf("clear scratch area %s: %w", s.Root, err)
	}
	for _, dir := range []string{s.DownloadDir(), s.ExtractDir()} {
		if err := fsys.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create scratch dir %s: %w", dir, err)
		}
	}
	return nil
}

// Remove deletes the whole tree. Removing an already-absent tree is fine.
func (s ScratchArea) Remove(fsys afero.Fs) error {
	if err := fsys.RemoveAll(s.Root); err != nil {
		return fmt.Errorf("remove scratch area %s: %w", s.Root, err)
	}
	return nil
}
