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

package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/FlashPrepProject/flashprep-core/pkg/helpers"
)

// ErrInputClosed is returned by the console chooser when its input ends
// before a valid selection is made.
var ErrInputClosed = errors.New("selection input closed")

// ConsoleChooser prompts on out and reads selections from in. A single
// candidate is taken without prompting. Invalid input re-prompts forever;
// only context cancellation or input EOF abort.
func ConsoleChooser(in io.Reader, out io.Writer) Chooser {
	return func(ctx context.Context, candidates []Candidate) (int, error) {
		if len(candidates) == 1 {
			return 0, nil
		}

		fmt.Fprintln(out, "Multiple removable media found:")
		for i, c := range candidates {
			status := "not mounted"
			if c.Mounted() {
				status = "mounted at " + c.Mountpoint
			}
			label := c.Label
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(out, "  [%d] %s  %s  %s  %s  (%s)\n",
				i+1, c.DevicePath, label, helpers.FormatBytes(c.SizeBytes),
				c.Filesystem, status)
		}

		lines := make(chan string)
		readErr := make(chan error, 1)
		done := make(chan struct{})
		defer close(done)

		go func() {
			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-done:
					return
				}
			}
			readErr <- scanner.Err()
		}()

		for {
			fmt.Fprintf(out, "Select media [1-%d]: ", len(candidates))

			select {
			case <-ctx.Done():
				fmt.Fprintln(out)
				return 0, ctx.Err()
			case err := <-readErr:
				if err != nil {
					return 0, fmt.Errorf("%w: %v", ErrInputClosed, err)
				}
				return 0, ErrInputClosed
			case line := <-lines:
				n, err := strconv.Atoi(strings.TrimSpace(line))
				if err != nil || n < 1 || n > len(candidates) {
					fmt.Fprintf(out, "invalid selection %q\n", strings.TrimSpace(line))
					continue
				}
				return n - 1, nil
			}
		}
	}
}

// PreselectChooser matches a candidate by device name or device path,
// for non-interactive runs where the operator names the target up front.
func PreselectChooser(device string) Chooser {
	return func(_ context.Context, candidates []Candidate) (int, error) {
		for i, c := range candidates {
			if c.Device == device || c.DevicePath == device {
				return i, nil
			}
		}
		return 0, fmt.Errorf("device %q is not a staging candidate", device)
	}
}
