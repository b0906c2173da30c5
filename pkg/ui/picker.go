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

// Package ui provides the full-screen terminal picker for staging media.
package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/FlashPrepProject/flashprep-core/pkg/helpers"
	"github.com/FlashPrepProject/flashprep-core/pkg/media"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

// ErrPickerCancelled is returned when the user backs out of the picker
// without selecting a device.
var ErrPickerCancelled = errors.New("media selection cancelled")

// Picker shows removable media candidates in a full-screen list. Its
// Choose method satisfies media.Chooser.
type Picker struct {
	// newScreen overrides the tcell screen, for tests.
	newScreen func() (tcell.Screen, error)
}

func NewPicker() *Picker {
	return &Picker{}
}

// Choose displays the candidate list and blocks until the user selects a
// device, cancels, or ctx is done. A single candidate is chosen without
// showing the picker, matching the console chooser.
func (p *Picker) Choose(ctx context.Context, candidates []media.Candidate) (int, error) {
	if len(candidates) == 1 {
		log.Debug().
			Str("device", candidates[0].DevicePath).
			Msg("single candidate, skipping picker")
		return 0, nil
	}

	ApplyTheme(&ThemeDefault)
	app := tview.NewApplication()
	if p.newScreen != nil {
		screen, err := p.newScreen()
		if err != nil {
			return 0, fmt.Errorf("create picker screen: %w", err)
		}
		app.SetScreen(screen)
	}

	// Stopping the app without selecting, via Escape or the cancel item,
	// leaves chooseErr at its cancelled default.
	chosen := 0
	chooseErr := ErrPickerCancelled
	page := buildPickerPage(app, candidates, func(i int) {
		chosen = i
		chooseErr = nil
		app.Stop()
	})
	app.SetRoot(page.root, true)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			app.Stop()
		case <-done:
		}
	}()

	if err := app.Run(); err != nil {
		return 0, fmt.Errorf("run media picker: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return chosen, chooseErr
}

type pickerPage struct {
	root tview.Primitive
	list *tview.List
}

// buildPickerPage lays out the candidate list. choose is called with the
// selected candidate index; cancelling stops the app without calling it.
func buildPickerPage(
	app *tview.Application,
	candidates []media.Candidate,
	choose func(int),
) *pickerPage {
	list := tview.NewList()

	for i, c := range candidates {
		label := c.Label
		if label == "" {
			label = "unlabeled"
		}
		location := "not mounted"
		if c.Mounted() {
			location = "mounted at " + c.Mountpoint
		}
		secondary := fmt.Sprintf("%s, %s, %s",
			helpers.FormatBytes(c.SizeBytes), c.Filesystem, location)
		list.AddItem(fmt.Sprintf("%s  %s", c.DevicePath, label), secondary, 0, func() {
			choose(i)
		})
	}

	list.AddItem("Cancel", "leave all devices untouched and abort", 0, func() {
		app.Stop()
	})

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	title := tview.NewTextView().
		SetText("Select the USB device to stage firmware on").
		SetTextAlign(tview.AlignCenter)

	flex := tview.NewFlex().SetDirection(tview.FlexRow)
	flex.SetBorder(true)
	flex.AddItem(tview.NewTextView(), 1, 0, false)
	flex.AddItem(title, 1, 0, false)
	flex.AddItem(tview.NewTextView(), 1, 0, false)
	flex.AddItem(list, 0, 1, true)

	height := len(candidates)*2 + 8
	return &pickerPage{
		root: centerWidget(70, height, flex),
		list: list,
	}
}

// centerWidget wraps p in flex padding so it floats in the middle of the
// screen.
func centerWidget(width, height int, p tview.Primitive) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}
