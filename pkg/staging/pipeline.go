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
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/FlashPrepProject/flashprep-core/pkg/helpers"
	"github.com/FlashPrepProject/flashprep-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/afero"
)

// Transfers below this much free scratch space still run, but get flagged.
const scratchSpaceFloor = 64 * 1024 * 1024

// Pipeline turns a firmware download URL into a staged payload file. All
// file operations go through the injected filesystem.
type Pipeline struct {
	http       *httpclient.Client
	fs         afero.Fs
	scratch    ScratchArea
	payloadExt string
}

// NewPipeline builds a pipeline over the given scratch area. A nil fs means
// the real filesystem.
func NewPipeline(client *httpclient.Client, fsys afero.Fs, scratch ScratchArea, payloadExt string) *Pipeline {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Pipeline{
		http:       client,
		fs:         fsys,
		scratch:    scratch,
		payloadExt: payloadExt,
	}
}

// Download fetches the archive at rawURL into the scratch download dir,
// keeping the filename the URL names. Returns the archive path.
func (p *Pipeline) Download(ctx context.Context, rawURL string) (string, error) {
	p.warnLowScratchSpace()

	name := archiveNameFromURL(rawURL)
	dest := filepath.Join(p.scratch.DownloadDir(), name)

	err := p.http.DownloadFile(ctx, p.fs, httpclient.DownloadFileArgs{
		URL:        rawURL,
		OutputPath: dest,
		TempPath:   dest + ".part",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	info, err := p.fs.Stat(dest)
	if err != nil {
		return "", fmt.Errorf("%w: archive missing after transfer: %v", ErrDownloadFailed, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: archive is empty", ErrDownloadFailed)
	}

	log.Info().
		Str("archive", name).
		Str("size", helpers.FormatBytes(uint64(info.Size()))).
		Msg("downloaded firmware archive")
	return dest, nil
}

// Extract unpacks the archive into the scratch extraction dir and returns
// that dir.
func (p *Pipeline) Extract(archivePath string) (string, error) {
	if !helpers.IsZip(archivePath) {
		return "", fmt.Errorf("%w: %s is not a zip archive",
			ErrExtractionFailed, filepath.Base(archivePath))
	}

	archive, err := p.fs.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer func() {
		if closeErr := archive.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing archive")
		}
	}()

	info, err := archive.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	reader, err := zip.NewReader(archive, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	destRoot := p.scratch.ExtractDir()
	for _, entry := range reader.File {
		if err := p.extractEntry(entry, destRoot); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, entry.Name, err)
		}
	}

	log.Debug().Int("entries", len(reader.File)).Msg("extracted firmware archive")
	return destRoot, nil
}

func (p *Pipeline) extractEntry(entry *zip.File, destRoot string) error {
	dest := filepath.Join(destRoot, filepath.FromSlash(entry.Name))

	// Entry names are attacker-ish input: never let one climb out of the
	// extraction root.
	rel, err := filepath.Rel(destRoot, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New("entry path escapes extraction root")
	}

	if entry.FileInfo().IsDir() {
		if err := p.fs.MkdirAll(dest, 0o750); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
		return nil
	}

	if err := p.fs.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing archive entry")
		}
	}()

	out, err := p.fs.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	_, err = io.Copy(out, src) //nolint:gosec // firmware archives are a few dozen MB at most
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// LocatePayload finds the firmware payload under root: the first file in
// depth-first alphabetical order whose extension matches the configured
// payload extension, case-insensitively. When an archive carries several,
// the first one wins.
func (p *Pipeline) LocatePayload(root string) (string, error) {
	var found string
	err := afero.Walk(p.fs, root, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(walkPath), p.payloadExt) {
			found = walkPath
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return "", fmt.Errorf("%w: scan %s: %v", ErrPayloadNotFound, root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no %s file under %s",
			ErrPayloadNotFound, p.payloadExt, filepath.Base(root))
	}

	log.Info().Str("payload", filepath.Base(found)).Msg("located firmware payload")
	return found, nil
}

// Stage copies the payload to destDir named {version}{ext}, where ext is
// the payload's own extension. Any previous file under that name is
// removed first, and a failed copy is removed again, so the name only
// ever holds the old file, nothing, or a complete new copy.
func (p *Pipeline) Stage(payloadPath, destDir, version string) (string, error) {
	staged := filepath.Join(destDir, version+filepath.Ext(payloadPath))

	if err := p.fs.Remove(staged); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: remove previous %s: %v",
			ErrStageWriteFailed, filepath.Base(staged), err)
	}

	src, err := p.fs.Open(payloadPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStageWriteFailed, err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing payload")
		}
	}()

	out, err := p.fs.Create(staged)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStageWriteFailed, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		p.discardPartial(staged)
		return "", fmt.Errorf("%w: %v", ErrStageWriteFailed, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		p.discardPartial(staged)
		return "", fmt.Errorf("%w: sync: %v", ErrStageWriteFailed, err)
	}
	if err := out.Close(); err != nil {
		p.discardPartial(staged)
		return "", fmt.Errorf("%w: close: %v", ErrStageWriteFailed, err)
	}

	srcInfo, err := p.fs.Stat(payloadPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStageWriteFailed, err)
	}
	stagedInfo, err := p.fs.Stat(staged)
	if err != nil {
		return "", fmt.Errorf("%w: staged file missing: %v", ErrStageWriteFailed, err)
	}
	if stagedInfo.Size() != srcInfo.Size() {
		p.discardPartial(staged)
		return "", fmt.Errorf("%w: wrote %d of %d bytes",
			ErrStageWriteFailed, stagedInfo.Size(), srcInfo.Size())
	}

	log.Info().
		Str("path", staged).
		Str("size", helpers.FormatBytes(uint64(stagedInfo.Size()))).
		Msg("staged firmware payload")
	return staged, nil
}

func (p *Pipeline) discardPartial(path string) {
	if err := p.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msgf("error removing partial file: %s", path)
	}
}

// archiveNameFromURL keeps the filename the download URL names, decoding
// percent escapes. Degenerate URLs fall back to a fixed name.
func archiveNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return sanitizeArchiveName(filepath.Base(rawURL))
	}

	name := path.Base(parsed.Path)
	decoded, err := url.PathUnescape(name)
	if err != nil {
		decoded = name
	}
	return sanitizeArchiveName(decoded)
}

func sanitizeArchiveName(name string) string {
	if name == "" || name == "." || name == "/" {
		return "firmware.zip"
	}
	return name
}

// warnLowScratchSpace flags transfers starting with little room to spare.
// Best effort only; the stat can fail in containers and on virtual
// filesystems.
func (p *Pipeline) warnLowScratchSpace() {
	usage, err := disk.Usage(p.scratch.Root)
	if err != nil {
		log.Debug().Err(err).Str("path", p.scratch.Root).Msg("cannot check scratch free space")
		return
	}
	if usage.Free < scratchSpaceFloor {
		log.Warn().
			Str("free", helpers.FormatBytes(usage.Free)).
			Str("path", p.scratch.Root).
			Msg("scratch area low on disk space")
	}
}
