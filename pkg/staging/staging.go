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

// Package staging acquires a firmware release and places its payload on
// removable media, as a single-shot session that always cleans up after
// itself.
package staging

import "errors"

var (
	// ErrDownloadFailed is returned when the firmware archive cannot be
	// fetched completely.
	ErrDownloadFailed = errors.New("firmware download failed")
	// ErrExtractionFailed is returned when the downloaded archive cannot be
	// unpacked.
	ErrExtractionFailed = errors.New("firmware archive extraction failed")
	// ErrPayloadNotFound is returned when no firmware payload exists in the
	// extracted archive.
	ErrPayloadNotFound = errors.New("no firmware payload in archive")
	// ErrStageWriteFailed is returned when the payload cannot be written
	// completely to the staging media.
	ErrStageWriteFailed = errors.New("staged firmware write failed")
	// ErrSessionBusy is returned when a staging session is already running
	// in this process.
	ErrSessionBusy = errors.New("staging session already running")
)
