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

package config

import (
	"net/url"
	"strings"
	"sync/atomic"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry holds authentication credentials for a URL prefix.
// Used for catalog mirrors that sit behind basic auth or a bearer token.
type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Bearer   string `toml:"bearer"`
}

// Auth is the parsed contents of auth.toml.
type Auth struct {
	Creds map[string]CredentialEntry
}

var authCfg atomic.Value

// GetAuthCfg returns the currently loaded auth config, if any.
func GetAuthCfg() Auth {
	val := authCfg.Load()
	if val == nil {
		return Auth{}
	}
	auth, ok := val.(Auth)
	if !ok {
		return Auth{}
	}
	return auth
}

// LoadAuthFromData parses auth.toml data. Entries are root-level tables
// keyed by URL prefix:
//
//	["https://dlcdnets.asus.com"]
//	username = "mirror"
//	password = "hunter2"
func LoadAuthFromData(data []byte) map[string]CredentialEntry {
	result := make(map[string]CredentialEntry)

	var root map[string]CredentialEntry
	if err := toml.Unmarshal(data, &root); err != nil {
		log.Warn().Err(err).Msg("failed to parse auth file")
		return result
	}

	for k, v := range root {
		if v.Username == "" && v.Bearer == "" {
			continue
		}
		result[k] = v
	}

	return result
}

// LookupAuth finds credentials matching a request URL. The entry's scheme
// and host must match exactly and its path must be a prefix of the
// request path.
func LookupAuth(authCfg Auth, reqURL string) *CredentialEntry {
	if len(authCfg.Creds) == 0 {
		return nil
	}

	u, err := url.Parse(reqURL)
	if err != nil {
		log.Warn().Msgf("invalid auth request url: %s", reqURL)
		return nil
	}

	for k, v := range authCfg.Creds {
		defURL, err := url.Parse(k)
		if err != nil {
			log.Error().Msgf("invalid auth config url: %s", k)
			continue
		}

		if !strings.EqualFold(defURL.Scheme, u.Scheme) {
			continue
		}

		if !strings.EqualFold(defURL.Host, u.Host) {
			continue
		}

		if !strings.HasPrefix(u.Path, defURL.Path) {
			continue
		}

		return &v
	}

	return nil
}

// SetAuthCfgForTesting sets the global auth config for testing purposes
func SetAuthCfgForTesting(auth Auth) {
	authCfg.Store(auth)
}
