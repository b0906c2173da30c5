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

package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/FlashPrepProject/flashprep-core/internal/telemetry"
	"github.com/FlashPrepProject/flashprep-core/pkg/config"
	"github.com/FlashPrepProject/flashprep-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	Media     *string
	Scratch   *string
	Version   *bool
	Debug     *bool
	Check     *bool
	ListMedia *bool
	TUI       *bool
}

// SetupFlags defines all CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Debug: flag.Bool(
			"debug",
			false,
			"enable debug logging",
		),
		Check: flag.Bool(
			"check",
			false,
			"report whether a firmware update is available, without staging",
		),
		ListMedia: flag.Bool(
			"list-media",
			false,
			"list removable media suitable for staging and exit",
		),
		Media: flag.String(
			"media",
			"",
			"stage onto the given device without prompting, e.g. /dev/sdb1",
		),
		TUI: flag.Bool(
			"tui",
			false,
			"select the staging device with the full-screen picker",
		),
		Scratch: flag.String(
			"scratch",
			"",
			"override the scratch directory",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("FlashPrep v%s (%s/%s)\n",
			config.AppVersion, runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}
}

// Post applies parsed flags that override loaded config values.
func (f *Flags) Post(cfg *config.Instance) {
	if *f.Debug {
		cfg.SetDebugLogging(true)
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if isFlagPassed("scratch") {
		if *f.Scratch == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: scratch flag requires a value\n")
			os.Exit(1)
		}
		cfg.SetScratchDir(*f.Scratch)
	}
}

// Setup initializes the user config and logging. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) *config.Instance {
	err := helpers.InitLogging(helpers.LogDir(), writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Initialize error reporting (opt-in)
	if err := telemetry.Init(
		cfg.TelemetryEnabled(),
		cfg.TelemetryDeviceID(),
		config.AppVersion,
	); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}
