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

package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupportedVendor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		vendor    string
		supported bool
	}{
		{
			name:      "full DMI vendor string",
			vendor:    "ASUSTeK COMPUTER INC.",
			supported: true,
		},
		{
			name:      "mixed case variant",
			vendor:    "ASUSTek Computer Inc.",
			supported: true,
		},
		{
			name:      "short brand name",
			vendor:    "ASUS",
			supported: true,
		},
		{
			name:      "surrounding whitespace",
			vendor:    "  ASUSTeK COMPUTER INC.\n",
			supported: true,
		},
		{
			name:      "other vendor",
			vendor:    "ASRock",
			supported: false,
		},
		{
			name:      "other vendor full string",
			vendor:    "Micro-Star International Co., Ltd.",
			supported: false,
		},
		{
			name:      "empty",
			vendor:    "",
			supported: false,
		},
		{
			name:      "whitespace only",
			vendor:    "   ",
			supported: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.supported, IsSupportedVendor(tt.vendor))
		})
	}
}

func TestIdentityString(t *testing.T) {
	t.Parallel()

	id := Identity{Vendor: "ASUSTeK COMPUTER INC.", Product: "PRIME B760M-K D4"}
	assert.Equal(t, "ASUSTeK COMPUTER INC. PRIME B760M-K D4", id.String())

	assert.Equal(t, "PRIME B760M-K D4", Identity{Product: "PRIME B760M-K D4"}.String())
}
