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

package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/FlashPrepProject/flashprep-core/pkg/board"
	"github.com/FlashPrepProject/flashprep-core/pkg/catalog"
	"github.com/FlashPrepProject/flashprep-core/pkg/firmware"
	"github.com/FlashPrepProject/flashprep-core/pkg/media"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"
)

// State names the session phase, for logs and failure messages.
type State int

const (
	StateInit State = iota
	StateIdentifyBoard
	StateReadCurrentVersion
	StateQueryCatalog
	StateCompareVersions
	StateResolveMedia
	StateAcquire
	StateStage
	StateCleanup
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIdentifyBoard:
		return "identify-board"
	case StateReadCurrentVersion:
		return "read-current-version"
	case StateQueryCatalog:
		return "query-catalog"
	case StateCompareVersions:
		return "compare-versions"
	case StateResolveMedia:
		return "resolve-media"
	case StateAcquire:
		return "acquire"
	case StateStage:
		return "stage"
	case StateCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Outcome is how a successful session ended.
type Outcome string

const (
	OutcomeStaged   Outcome = "staged"
	OutcomeUpToDate Outcome = "up-to-date"
)

// Result describes a finished session.
type Result struct {
	Outcome        Outcome
	CurrentVersion string
	LatestVersion  string
	StagedPath     string
	AccessPoint    string
	Elapsed        time.Duration
}

// BoardSource supplies the board identity and its installed firmware.
type BoardSource interface {
	Identity() (board.Identity, error)
	FirmwareVersion() (string, error)
}

// CatalogClient supplies the newest published firmware for a board.
type CatalogClient interface {
	QueryLatest(ctx context.Context, id board.Identity) (*catalog.FirmwareRecord, error)
}

// MediaResolver supplies a staging destination and undoes it afterwards.
type MediaResolver interface {
	Resolve(ctx context.Context) (*media.AccessPointLease, error)
	Release()
}

// AcquisitionPipeline turns a download URL into a staged payload.
type AcquisitionPipeline interface {
	Download(ctx context.Context, rawURL string) (string, error)
	Extract(archivePath string) (string, error)
	LocatePayload(root string) (string, error)
	Stage(payloadPath, destDir, version string) (string, error)
}

// SessionArgs carries a session's collaborators. Fs and Clock may be nil
// for the real filesystem and wall clock.
type SessionArgs struct {
	Board    BoardSource
	Catalog  CatalogClient
	Resolver MediaResolver
	Pipeline AcquisitionPipeline
	Scratch  ScratchArea
	Fs       afero.Fs
	Clock    clockwork.Clock
}

// Session runs one staging operation front to back. Cleanup runs no matter
// how the session ends, and a second Run while one is active is refused.
type Session struct {
	board    BoardSource
	catalog  CatalogClient
	resolver MediaResolver
	pipeline AcquisitionPipeline
	fs       afero.Fs
	clock    clockwork.Clock
	sem      *semaphore.Weighted
	scratch  ScratchArea
	id       string
	logger   zerolog.Logger
}

func NewSession(args SessionArgs) *Session {
	if args.Fs == nil {
		args.Fs = afero.NewOsFs()
	}
	if args.Clock == nil {
		args.Clock = clockwork.NewRealClock()
	}
	id := uuid.New().String()
	return &Session{
		board:    args.Board,
		catalog:  args.Catalog,
		resolver: args.Resolver,
		pipeline: args.Pipeline,
		fs:       args.Fs,
		clock:    args.Clock,
		scratch:  args.Scratch,
		sem:      semaphore.NewWeighted(1),
		id:       id,
		logger:   log.With().Str("session", id).Logger(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Run walks the staging states in order. The context aborts blocking work;
// an aborted session still cleans up.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if !s.sem.TryAcquire(1) {
		return nil, ErrSessionBusy
	}
	defer s.sem.Release(1)
	defer s.cleanup()

	return s.run(ctx)
}

func (s *Session) run(ctx context.Context) (*Result, error) {
	start := s.clock.Now()

	s.enter(StateInit)
	if err := s.scratch.Recreate(s.fs); err != nil {
		return nil, s.fail(StateInit, err)
	}

	s.enter(StateIdentifyBoard)
	identity, err := s.board.Identity()
	if err != nil {
		return nil, s.fail(StateIdentifyBoard, err)
	}
	if !board.IsSupportedVendor(identity.Vendor) {
		return nil, s.fail(StateIdentifyBoard,
			fmt.Errorf("%w: %s", board.ErrUnsupportedBoard, identity.Vendor))
	}
	s.logger.Info().
		Str("vendor", identity.Vendor).
		Str("product", identity.Product).
		Msg("identified board")

	s.enter(StateReadCurrentVersion)
	rawCurrent, err := s.board.FirmwareVersion()
	if err != nil {
		return nil, s.fail(StateReadCurrentVersion, err)
	}
	current, err := firmware.ExtractVersion(rawCurrent)
	if err != nil {
		return nil, s.fail(StateReadCurrentVersion,
			fmt.Errorf("installed firmware %q: %w", rawCurrent, err))
	}

	s.enter(StateQueryCatalog)
	record, err := s.catalog.QueryLatest(ctx, identity)
	if err != nil {
		return nil, s.fail(StateQueryCatalog, err)
	}

	s.enter(StateCompareVersions)
	latest, err := firmware.ExtractVersion(record.Version)
	if err != nil {
		return nil, s.fail(StateCompareVersions,
			fmt.Errorf("catalog version %q: %w", record.Version, err))
	}
	s.logger.Info().
		Str("current", current.String()).
		Str("latest", latest.String()).
		Msg("compared firmware versions")
	if !firmware.NeedsUpdate(current, latest) {
		return &Result{
			Outcome:        OutcomeUpToDate,
			CurrentVersion: current.String(),
			LatestVersion:  latest.String(),
			Elapsed:        s.clock.Since(start),
		}, nil
	}

	s.enter(StateResolveMedia)
	lease, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, s.fail(StateResolveMedia, err)
	}

	s.enter(StateAcquire)
	archive, err := s.pipeline.Download(ctx, record.DownloadURL)
	if err != nil {
		return nil, s.fail(StateAcquire, err)
	}
	extracted, err := s.pipeline.Extract(archive)
	if err != nil {
		return nil, s.fail(StateAcquire, err)
	}
	payload, err := s.pipeline.LocatePayload(extracted)
	if err != nil {
		return nil, s.fail(StateAcquire, err)
	}

	s.enter(StateStage)
	staged, err := s.pipeline.Stage(payload, lease.AccessPoint, latest.String())
	if err != nil {
		return nil, s.fail(StateStage, err)
	}

	return &Result{
		Outcome:        OutcomeStaged,
		CurrentVersion: current.String(),
		LatestVersion:  latest.String(),
		StagedPath:     staged,
		AccessPoint:    lease.AccessPoint,
		Elapsed:        s.clock.Since(start),
	}, nil
}

// cleanup tears down everything the session built: scratch tree first, then
// any media leases. Failures are logged, never returned, so they cannot
// mask the session outcome. Safe to run more than once.
func (s *Session) cleanup() {
	s.enter(StateCleanup)
	if err := s.scratch.Remove(s.fs); err != nil {
		s.logger.Warn().Err(err).Msg("scratch cleanup failed")
	}
	s.resolver.Release()
}

func (s *Session) enter(state State) {
	s.logger.Info().Str("state", state.String()).Msg("entering state")
}

func (s *Session) fail(state State, err error) error {
	s.logger.Error().Err(err).Str("state", state.String()).Msg("staging failed")
	return fmt.Errorf("%s: %w", state, err)
}
