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

package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Theme defines the colors used by the picker.
type Theme struct {
	Name                     string
	PrimitiveBackgroundColor tcell.Color
	ContrastBackgroundColor  tcell.Color
	BorderColor              tcell.Color
	PrimaryTextColor         tcell.Color
	SecondaryTextColor       tcell.Color
	InverseTextColor         tcell.Color
}

// ThemeDefault is the dark blue/yellow default.
var ThemeDefault = Theme{
	Name:                     "default",
	PrimitiveBackgroundColor: tcell.ColorDarkBlue,
	ContrastBackgroundColor:  tcell.ColorBlue,
	BorderColor:              tcell.ColorLightYellow,
	PrimaryTextColor:         tcell.ColorWhite,
	SecondaryTextColor:       tcell.ColorGray,
	InverseTextColor:         tcell.ColorDarkBlue,
}

// ThemeHighContrast uses true black with bright yellow for accessibility.
var ThemeHighContrast = Theme{
	Name:                     "high_contrast",
	PrimitiveBackgroundColor: tcell.NewHexColor(0x000000),
	ContrastBackgroundColor:  tcell.NewHexColor(0x000000),
	BorderColor:              tcell.ColorYellow,
	PrimaryTextColor:         tcell.ColorWhite,
	SecondaryTextColor:       tcell.ColorWhite,
	InverseTextColor:         tcell.NewHexColor(0x000000),
}

// ApplyTheme applies the given theme to tview's global styles.
func ApplyTheme(theme *Theme) {
	tview.Styles.PrimitiveBackgroundColor = theme.PrimitiveBackgroundColor
	tview.Styles.ContrastBackgroundColor = theme.ContrastBackgroundColor
	tview.Styles.BorderColor = theme.BorderColor
	tview.Styles.PrimaryTextColor = theme.PrimaryTextColor
	tview.Styles.SecondaryTextColor = theme.SecondaryTextColor
	tview.Styles.InverseTextColor = theme.InverseTextColor
}
