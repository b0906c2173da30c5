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
	"fmt"
	"path/filepath"
	"strings"
)

func IsZip(filePath string) bool {
	return filepath.Ext(strings.ToLower(filePath)) == ".zip"
}

// FormatBytes renders a byte count in a compact human-readable form,
// e.g. 31914983424 -> "29.7 GB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
