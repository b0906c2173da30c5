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

// Package firmware extracts and compares BIOS version tokens.
package firmware

import (
	"errors"
	"regexp"
	"strconv"
)

// ErrVersionFormat is returned when a raw firmware string contains no
// version token.
var ErrVersionFormat = errors.New("no version token in firmware string")

// versionTokenRe matches a run of exactly four decimal digits. Longer
// digit runs (serial numbers, dates) never contain a token.
var versionTokenRe = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4})(?:[^0-9]|$)`)

// Token is a firmware version extracted from a raw vendor string.
// Ordering is numeric, but the original digits (including leading
// zeroes) are preserved for display and file naming.
type Token struct {
	raw string
	num int
}

func (t Token) String() string {
	return t.raw
}

// Int returns the numeric value of the token.
func (t Token) Int() int {
	return t.num
}

// IsZero reports whether the token is the zero value, i.e. not extracted.
func (t Token) IsZero() bool {
	return t.raw == ""
}

// ExtractVersion scans a raw firmware string, e.g. DMI bios_version or
// "ASUS PRIME B760M-K D4 BIOS 1825", for the first run of exactly four
// decimal digits.
func ExtractVersion(raw string) (Token, error) {
	m := versionTokenRe.FindStringSubmatch(raw)
	if m == nil {
		return Token{}, ErrVersionFormat
	}

	num, err := strconv.Atoi(m[1])
	if err != nil {
		return Token{}, ErrVersionFormat
	}

	return Token{raw: m[1], num: num}, nil
}

// NeedsUpdate reports whether latest is strictly newer than current.
// Equal versions are up to date.
func NeedsUpdate(current, latest Token) bool {
	return latest.num > current.num
}
