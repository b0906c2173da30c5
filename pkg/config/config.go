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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FlashPrepProject/flashprep-core/pkg/helpers/syncutil"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "FLASHPREP_CFG"
	AppEnv        = "FLASHPREP_APP"
)

type Values struct {
	Catalog      Catalog   `toml:"catalog,omitempty"`
	Staging      Staging   `toml:"staging,omitempty"`
	Media        Media     `toml:"media,omitempty"`
	Telemetry    Telemetry `toml:"telemetry,omitempty"`
	ConfigSchema int       `toml:"config_schema"`
	DebugLogging bool      `toml:"debug_logging"`
}

// Catalog holds the vendor update catalog endpoint settings.
type Catalog struct {
	Endpoint string `toml:"endpoint,omitempty"`
	Website  string `toml:"website,omitempty"`
}

// Staging holds the scratch area and payload settings.
type Staging struct {
	ScratchDir string `toml:"scratch_dir,omitempty"`
	PayloadExt string `toml:"payload_ext,omitempty"`
}

// Media holds removable media mount settings.
type Media struct {
	MountRoot string `toml:"mount_root,omitempty"`
	MaxMounts int    `toml:"max_mounts,omitempty"`
}

// Telemetry holds opt-in error reporting settings.
type Telemetry struct {
	DeviceID string `toml:"device_id,omitempty"`
	Enabled  bool   `toml:"enabled"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Catalog: Catalog{
		Endpoint: "https://www.asus.com/support/api/product.asmx/GetPDBIOS",
		Website:  "global",
	},
	Staging: Staging{
		ScratchDir: filepath.Join(os.TempDir(), "flashprep-staging"),
		PayloadExt: ".CAP",
	},
	Media: Media{
		MountRoot: "/media",
		MaxMounts: 8,
	},
}

type Instance struct {
	appPath  string
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		appPath:  os.Getenv(AppEnv),
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	cfg.authPath = filepath.Join(filepath.Dir(cfgPath), AuthFile)

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if _, err := os.Stat(c.cfgPath); err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals

	// load auth file
	if _, err := os.Stat(c.authPath); err == nil {
		log.Info().Msg("loading auth file")
		authData, err := os.ReadFile(c.authPath)
		if err != nil {
			return fmt.Errorf("failed to read auth file: %w", err)
		}

		creds := LoadAuthFromData(authData)
		log.Info().Msgf("loaded %d auth entries", len(creds))
		authCfg.Store(Auth{Creds: creds})
	}

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	// generate a device id if one doesn't exist
	if c.vals.Telemetry.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.Telemetry.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AppPath returns the FLASHPREP_APP override of the executable path, if set.
func (c *Instance) AppPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appPath
}

func (c *Instance) CatalogEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.Endpoint
}

func (c *Instance) CatalogWebsite() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.Website
}

// ScratchDir returns the session scratch directory root. It is always
// non-empty: an unset value falls back to the compiled-in default.
func (c *Instance) ScratchDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Staging.ScratchDir == "" {
		return BaseDefaults.Staging.ScratchDir
	}
	return c.vals.Staging.ScratchDir
}

func (c *Instance) SetScratchDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Staging.ScratchDir = dir
}

// PayloadExt returns the firmware payload file extension, dot included.
func (c *Instance) PayloadExt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Staging.PayloadExt == "" {
		return BaseDefaults.Staging.PayloadExt
	}
	return c.vals.Staging.PayloadExt
}

func (c *Instance) MountRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Media.MountRoot == "" {
		return BaseDefaults.Media.MountRoot
	}
	return c.vals.Media.MountRoot
}

func (c *Instance) MaxMounts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Media.MaxMounts <= 0 {
		return BaseDefaults.Media.MaxMounts
	}
	return c.vals.Media.MaxMounts
}

func (c *Instance) TelemetryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.Enabled
}

func (c *Instance) TelemetryDeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.DeviceID
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
