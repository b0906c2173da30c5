//go:build linux

/*
FlashPrep
Copyright (c) 2026 The FlashPrep Project Contributors.

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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FlashPrepProject/flashprep-core/internal/telemetry"
	"github.com/FlashPrepProject/flashprep-core/pkg/board"
	"github.com/FlashPrepProject/flashprep-core/pkg/catalog"
	"github.com/FlashPrepProject/flashprep-core/pkg/cli"
	"github.com/FlashPrepProject/flashprep-core/pkg/config"
	"github.com/FlashPrepProject/flashprep-core/pkg/firmware"
	"github.com/FlashPrepProject/flashprep-core/pkg/helpers"
	"github.com/FlashPrepProject/flashprep-core/pkg/media"
	"github.com/FlashPrepProject/flashprep-core/pkg/shared/httpclient"
	"github.com/FlashPrepProject/flashprep-core/pkg/staging"
	"github.com/FlashPrepProject/flashprep-core/pkg/ui"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	cfg := cli.Setup(config.BaseDefaults, nil)
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	defer close(sigs)
	defer signal.Stop(sigs)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigs
		if !ok {
			return
		}
		log.Info().Str("signal", sig.String()).Msg("cancelling on signal")
		cancel()
	}()

	switch {
	case *flags.ListMedia:
		return listMedia(ctx, cfg)
	case *flags.Check:
		return checkUpdate(ctx, cfg)
	}

	if os.Geteuid() != 0 {
		return errors.New("staging requires root, run with sudo")
	}

	result, err := stage(ctx, cfg, flags)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func listMedia(ctx context.Context, cfg *config.Instance) error {
	resolver := media.NewResolver(cfg, media.NewEnumerator(), nil)
	candidates, err := resolver.List(ctx)
	if err != nil {
		return fmt.Errorf("enumerate media: %w", err)
	}
	if len(candidates) == 0 {
		_, _ = fmt.Println("No removable FAT32 media attached.")
		return nil
	}

	for _, c := range candidates {
		label := c.Label
		if label == "" {
			label = "-"
		}
		location := "not mounted"
		if c.Mounted() {
			location = "mounted at " + c.Mountpoint
		}
		_, _ = fmt.Printf("%-12s %-16s %10s  %-6s %s\n",
			c.DevicePath, label, helpers.FormatBytes(c.SizeBytes),
			c.Filesystem, location)
	}
	return nil
}

func checkUpdate(ctx context.Context, cfg *config.Instance) error {
	source := board.NewSource()

	identity, err := source.Identity()
	if err != nil {
		return err
	}
	if !board.IsSupportedVendor(identity.Vendor) {
		return fmt.Errorf("%w: %s", board.ErrUnsupportedBoard, identity.Vendor)
	}

	rawCurrent, err := source.FirmwareVersion()
	if err != nil {
		return err
	}
	current, err := firmware.ExtractVersion(rawCurrent)
	if err != nil {
		return fmt.Errorf("installed firmware %q: %w", rawCurrent, err)
	}

	record, err := catalog.NewClient(cfg).QueryLatest(ctx, identity)
	if err != nil {
		return err
	}
	latest, err := firmware.ExtractVersion(record.Version)
	if err != nil {
		return fmt.Errorf("catalog version %q: %w", record.Version, err)
	}

	if firmware.NeedsUpdate(current, latest) {
		_, _ = fmt.Printf("Update available for %s: %s -> %s",
			identity.Product, current, latest)
		if record.ReleaseDate != "" {
			_, _ = fmt.Printf(" (released %s)", record.ReleaseDate)
		}
		_, _ = fmt.Println()
	} else {
		_, _ = fmt.Printf("%s is up to date (installed %s, latest %s)\n",
			identity.Product, current, latest)
	}
	return nil
}

func stage(ctx context.Context, cfg *config.Instance, flags *cli.Flags) (*staging.Result, error) {
	var choose media.Chooser
	switch {
	case *flags.Media != "":
		choose = media.PreselectChooser(*flags.Media)
	case *flags.TUI:
		choose = ui.NewPicker().Choose
	default:
		choose = media.ConsoleChooser(os.Stdin, os.Stdout)
	}

	scratch := staging.NewScratchArea(cfg.ScratchDir())
	session := staging.NewSession(staging.SessionArgs{
		Board:    board.NewSource(),
		Catalog:  catalog.NewClient(cfg),
		Resolver: media.NewResolver(cfg, media.NewEnumerator(), choose),
		Pipeline: staging.NewPipeline(httpclient.NewClient(), nil, scratch, cfg.PayloadExt()),
		Scratch:  scratch,
	})

	return session.Run(ctx)
}

func printResult(result *staging.Result) {
	switch result.Outcome {
	case staging.OutcomeUpToDate:
		_, _ = fmt.Printf("Firmware is up to date (installed %s, latest %s).\n",
			result.CurrentVersion, result.LatestVersion)
	case staging.OutcomeStaged:
		_, _ = fmt.Printf("Staged firmware %s at %s in %s.\n",
			result.LatestVersion, result.StagedPath,
			result.Elapsed.Round(time.Millisecond))
		_, _ = fmt.Println("Reboot into the BIOS and apply it with the board's flash tool.")
	}
}
