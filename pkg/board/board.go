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

// Package board identifies the mainboard FlashPrep is running on and the
// firmware revision it currently carries.
package board

import (
	"errors"
	"strings"
)

var (
	// ErrDetectionFailed is returned when the platform exposes no usable
	// board identity.
	ErrDetectionFailed = errors.New("board identity unavailable")
	// ErrUnsupportedBoard is returned when the detected board is not made
	// by a vendor whose catalog FlashPrep knows how to query.
	ErrUnsupportedBoard = errors.New("unsupported board vendor")
)

// Identity names a mainboard precisely enough to query a firmware catalog
// for it.
type Identity struct {
	// Vendor is the manufacturer string as reported by the platform,
	// e.g. "ASUSTeK COMPUTER INC.".
	Vendor string
	// Product is the board model used as the catalog lookup key,
	// e.g. "PRIME B760M-K D4".
	Product string
}

func (id Identity) String() string {
	if id.Vendor == "" {
		return id.Product
	}
	return id.Vendor + " " + id.Product
}

// supportedVendorPrefixes lists vendor string prefixes whose boards are
// served by the catalog endpoint. DMI vendor strings vary in suffix
// ("ASUSTeK COMPUTER INC.", "ASUSTek Computer Inc.") so matching is a
// case-insensitive prefix check.
var supportedVendorPrefixes = []string{
	"ASUS",
	"ASUSTEK",
}

// IsSupportedVendor reports whether boards from vendor can be looked up in
// the firmware catalog.
func IsSupportedVendor(vendor string) bool {
	v := strings.ToUpper(strings.TrimSpace(vendor))
	if v == "" {
		return false
	}
	for _, prefix := range supportedVendorPrefixes {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}
