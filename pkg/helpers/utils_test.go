/*
FlashPrep
Copyright (c) 2026 The FlashPrep Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of FlashPrep.

FlashPrep is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FlashPrep is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FlashPrep.  If not, see <http://www.gnu.org/licenses/>.
*/

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsZip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"PRIME-B760M-K-D4-ASUS-1900.zip", true},
		{"archive.ZIP", true},
		{"firmware.CAP", false},
		{"archive.zip.part", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsZip(tt.path))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		n    uint64
	}{
		{"0 B", 0},
		{"512 B", 512},
		{"1.0 KB", 1024},
		{"1.5 KB", 1536},
		{"16.0 MB", 16 * 1024 * 1024},
		{"29.7 GB", 31914983424},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatBytes(tt.n))
		})
	}
}
