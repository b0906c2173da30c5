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

package board

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDMIRoot is where the kernel exposes SMBIOS/DMI identity fields.
const DefaultDMIRoot = "/sys/class/dmi/id"

// Source reads board identity from the DMI sysfs tree.
type Source struct {
	// Root points at the DMI id directory. Overridable for tests.
	Root string
}

func NewSource() *Source {
	return &Source{Root: DefaultDMIRoot}
}

// Identity returns the board vendor and model. It fails with
// ErrDetectionFailed when either field is missing or empty, which happens
// on VMs and stripped-down firmware.
func (s *Source) Identity() (Identity, error) {
	vendor, err := s.readField("board_vendor")
	if err != nil {
		return Identity{}, err
	}
	product, err := s.readField("board_name")
	if err != nil {
		return Identity{}, err
	}
	return Identity{Vendor: vendor, Product: product}, nil
}

// FirmwareVersion returns the firmware revision string currently installed,
// as reported by DMI. The value is raw vendor text, not a parsed token.
func (s *Source) FirmwareVersion() (string, error) {
	return s.readField("bios_version")
}

func (s *Source) readField(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, name))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrDetectionFailed, name, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrDetectionFailed, name)
	}
	return value, nil
}
