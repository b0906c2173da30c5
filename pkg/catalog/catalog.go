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

// Package catalog queries the vendor firmware catalog for the newest BIOS
// release published for a board model.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/FlashPrepProject/flashprep-core/pkg/board"
	"github.com/FlashPrepProject/flashprep-core/pkg/config"
	"github.com/FlashPrepProject/flashprep-core/pkg/shared/httpclient"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var (
	// ErrCatalogUnavailable is returned when the catalog endpoint cannot be
	// reached or answers with a non-OK status.
	ErrCatalogUnavailable = errors.New("firmware catalog unavailable")
	// ErrCatalogEmpty is returned when the catalog answers but lists no
	// firmware files for the requested model.
	ErrCatalogEmpty = errors.New("no firmware listed in catalog")
	// ErrCatalogMalformed is returned when the catalog response cannot be
	// decoded or the newest entry is missing required fields.
	ErrCatalogMalformed = errors.New("malformed catalog response")
)

// FirmwareRecord is the newest firmware release the catalog lists for a
// board. Version is the raw catalog string, not a parsed token.
type FirmwareRecord struct {
	Version     string `validate:"required"`
	Title       string
	Description string
	FileSize    string
	ReleaseDate string
	DownloadURL string `validate:"required,url"`
}

// Wire shape of the vendor's GetPDBIOS endpoint. Entries in Files are
// ordered newest first, so only the head of the list matters here.
type pdbiosResponse struct {
	Result pdbiosResult `json:"Result"`
}

type pdbiosResult struct {
	Obj []pdbiosGroup `json:"Obj"`
}

type pdbiosGroup struct {
	Name  string       `json:"Name"`
	Files []pdbiosFile `json:"Files"`
}

type pdbiosFile struct {
	Version     string    `json:"Version"`
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	FileSize    string    `json:"FileSize"`
	ReleaseDate string    `json:"ReleaseDate"`
	DownloadURL pdbiosURL `json:"DownloadUrl"`
}

type pdbiosURL struct {
	Global string `json:"Global"`
}

// Client queries a firmware catalog endpoint.
type Client struct {
	http     *httpclient.Client
	validate *validator.Validate
	endpoint string
	website  string
}

// NewClient creates a catalog client using the configured endpoint and
// website region.
func NewClient(cfg *config.Instance) *Client {
	return &Client{
		http:     httpclient.NewClientWithTimeout(config.CatalogRequestTimeout),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		endpoint: cfg.CatalogEndpoint(),
		website:  cfg.CatalogWebsite(),
	}
}

// QueryLatest fetches the newest firmware release listed for the given
// board. The catalog is keyed by the board's product name.
func (c *Client) QueryLatest(ctx context.Context, id board.Identity) (*FirmwareRecord, error) {
	query := url.Values{}
	query.Set("website", c.website)
	query.Set("model", id.Product)
	query.Set("cpu", "")
	reqURL := c.endpoint + "?" + query.Encode()

	log.Debug().Str("url", reqURL).Msg("querying firmware catalog")

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrCatalogUnavailable, resp.Status)
	}

	var payload pdbiosResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCatalogMalformed, err)
	}

	if len(payload.Result.Obj) == 0 || len(payload.Result.Obj[0].Files) == 0 {
		return nil, fmt.Errorf("%w: model %q", ErrCatalogEmpty, id.Product)
	}

	newest := payload.Result.Obj[0].Files[0]
	record := &FirmwareRecord{
		Version:     strings.TrimSpace(newest.Version),
		Title:       newest.Title,
		Description: newest.Description,
		FileSize:    newest.FileSize,
		ReleaseDate: newest.ReleaseDate,
		DownloadURL: newest.DownloadURL.Global,
	}
	if err := c.validate.Struct(record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogMalformed, err)
	}

	log.Debug().
		Str("version", record.Version).
		Str("releaseDate", record.ReleaseDate).
		Msg("catalog returned firmware release")

	return record, nil
}
