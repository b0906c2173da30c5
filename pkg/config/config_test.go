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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_PreservesDefaultsForMissingFields(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)

	defaults := Values{
		ConfigSchema: SchemaVersion,
		Catalog: Catalog{
			Endpoint: "https://www.asus.com/support/api/product.asmx/GetPDBIOS",
			Website:  "global",
		},
		Staging: Staging{
			ScratchDir: "/tmp/flashprep-staging",
			PayloadExt: ".CAP",
		},
		Media: Media{
			MountRoot: "/media",
			MaxMounts: 8,
		},
	}

	// A minimal file that only carries the schema version should leave
	// every default untouched after Load.
	minimalConfig := fmt.Sprintf("config_schema = %d\n", SchemaVersion)
	err := os.WriteFile(cfgPath, []byte(minimalConfig), 0o600)
	require.NoError(t, err)

	cfg := &Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	err = cfg.Load()
	require.NoError(t, err)

	assert.Equal(t, "global", cfg.vals.Catalog.Website)
	assert.Equal(t, ".CAP", cfg.vals.Staging.PayloadExt)
	assert.Equal(t, "/media", cfg.vals.Media.MountRoot)
	assert.Equal(t, 8, cfg.vals.Media.MaxMounts)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)

	defaults := BaseDefaults

	configContent := fmt.Sprintf(`config_schema = %d
debug_logging = true

[catalog]
website = "tw"

[staging]
scratch_dir = "/var/tmp/fw"
payload_ext = ".ROM"

[media]
mount_root = "/mnt"
max_mounts = 4
`, SchemaVersion)

	err := os.WriteFile(cfgPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg := &Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	err = cfg.Load()
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, "tw", cfg.CatalogWebsite())
	assert.Equal(t, "/var/tmp/fw", cfg.ScratchDir())
	assert.Equal(t, ".ROM", cfg.PayloadExt())
	assert.Equal(t, "/mnt", cfg.MountRoot())
	assert.Equal(t, 4, cfg.MaxMounts())
	// endpoint not present in file, default retained
	assert.Equal(t, BaseDefaults.Catalog.Endpoint, cfg.CatalogEndpoint())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)

	err := os.WriteFile(cfgPath, []byte("config_schema = 999\n"), 0o600)
	require.NoError(t, err)

	cfg := &Instance{
		cfgPath:  cfgPath,
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}

	err = cfg.Load()
	require.Error(t, err)
}

func TestSave_LoadRoundTrip(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)

	cfg := &Instance{
		cfgPath:  cfgPath,
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}
	cfg.SetScratchDir("/var/tmp/staging")
	cfg.SetDebugLogging(true)

	require.NoError(t, cfg.Save())

	// Save generates a device id on first write.
	assert.NotEmpty(t, cfg.TelemetryDeviceID())
	firstID := cfg.TelemetryDeviceID()

	reloaded := &Instance{
		cfgPath:  cfgPath,
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}
	require.NoError(t, reloaded.Load())

	assert.Equal(t, "/var/tmp/staging", reloaded.ScratchDir())
	assert.True(t, reloaded.DebugLogging())
	assert.Equal(t, firstID, reloaded.TelemetryDeviceID())

	// Saving again must not regenerate the device id.
	require.NoError(t, reloaded.Save())
	assert.Equal(t, firstID, reloaded.TelemetryDeviceID())
}

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv(CfgEnv, "")

	cfg, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tempDir, CfgFile))
	require.NoError(t, err)

	assert.Equal(t, BaseDefaults.Catalog.Endpoint, cfg.CatalogEndpoint())
	assert.False(t, cfg.TelemetryEnabled())
}

func TestNewConfig_EnvOverridesPath(t *testing.T) {
	tempDir := t.TempDir()
	altPath := filepath.Join(tempDir, "alt", "my.toml")
	t.Setenv(CfgEnv, altPath)

	err := os.MkdirAll(filepath.Dir(altPath), 0o750)
	require.NoError(t, err)

	_, err = NewConfig(filepath.Join(tempDir, "ignored"), BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(altPath)
	require.NoError(t, err)
}

func TestGetters_FallBackWhenEmpty(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}

	assert.Equal(t, BaseDefaults.Staging.ScratchDir, cfg.ScratchDir())
	assert.Equal(t, BaseDefaults.Staging.PayloadExt, cfg.PayloadExt())
	assert.Equal(t, BaseDefaults.Media.MountRoot, cfg.MountRoot())
	assert.Equal(t, BaseDefaults.Media.MaxMounts, cfg.MaxMounts())
}

func TestConcurrentGetters(t *testing.T) {
	t.Parallel()

	cfg := &Instance{
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}

	done := make(chan struct{})
	for range 8 {
		go func() {
			for range 100 {
				_ = cfg.ScratchDir()
				_ = cfg.DebugLogging()
				cfg.SetDebugLogging(true)
			}
			done <- struct{}{}
		}()
	}
	for range 8 {
		<-done
	}
}
