// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the TOML configuration file, applies environment
// overrides, and watches the file for edits so setting changes take effect
// without a restart. Consumers never read the live struct directly; they
// take an immutable snapshot per decision cycle via Snapshot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/sweeparr/sweeparr/internal/domain"
)

const envPrefix = "SWEEPARR__"

// envBindings maps config keys to their environment override names.
var envBindings = map[string]string{
	"logLevel":                     "LOG_LEVEL",
	"logPath":                      "LOG_PATH",
	"dataDir":                      "DATA_DIR",
	"databasePath":                 "DATABASE_PATH",
	"dryRun":                       "DRY_RUN",
	"metricsEnabled":               "METRICS_ENABLED",
	"metricsHost":                  "METRICS_HOST",
	"metricsPort":                  "METRICS_PORT",
	"qbittorrent.host":             "QBITTORRENT_HOST",
	"qbittorrent.username":         "QBITTORRENT_USERNAME",
	"qbittorrent.password":         "QBITTORRENT_PASSWORD",
	"cleaner.enabled":              "CLEANER_ENABLED",
	"cleaner.intervalMinutes":      "CLEANER_INTERVAL_MINUTES",
	"cleaner.maxStrikes":           "CLEANER_MAX_STRIKES",
	"cleaner.removeOrphans":        "CLEANER_REMOVE_ORPHANS",
	"stuckimport.enabled":          "STUCKIMPORT_ENABLED",
	"stuckimport.intervalMinutes":  "STUCKIMPORT_INTERVAL_MINUTES",
	"stuckimport.retentionMinutes": "STUCKIMPORT_RETENTION_MINUTES",
}

// AppConfig owns the viper instance and the currently loaded configuration.
type AppConfig struct {
	viper      *viper.Viper
	configPath string

	mu     sync.RWMutex
	config *domain.Config
}

// New loads (or creates) the configuration file at configPath and returns
// the live AppConfig. A missing file is generated from the default template
// so a first run produces something the operator can edit.
func New(configPath, version string) (*AppConfig, error) {
	c := &AppConfig{
		viper: viper.New(),
	}

	if err := c.load(configPath); err != nil {
		return nil, err
	}
	c.config.Version = version

	return c, nil
}

func (c *AppConfig) load(configPath string) error {
	c.setDefaults()

	c.viper.SetConfigType("toml")

	if configPath != "" {
		if err := c.ensureConfigFile(configPath); err != nil {
			return err
		}
		c.viper.SetConfigFile(c.configPath)
	} else {
		dir := getDefaultConfigDir()
		if err := c.ensureConfigFile(filepath.Join(dir, "config.toml")); err != nil {
			return err
		}
		c.viper.SetConfigFile(c.configPath)
	}

	if err := c.viper.ReadInConfig(); err != nil {
		return errors.Wrap(err, "config read error")
	}

	for key, env := range envBindings {
		if err := c.viper.BindEnv(key, envPrefix+env); err != nil {
			return errors.Wrapf(err, "could not bind env for %s", key)
		}
	}

	cfg, err := c.unmarshal()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()

	return nil
}

func (c *AppConfig) unmarshal() (*domain.Config, error) {
	cfg := &domain.Config{}
	if err := c.viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return cfg, nil
}

func (c *AppConfig) ensureConfigFile(configPath string) error {
	// A directory argument means the file lives inside it as config.toml.
	if info, err := os.Stat(configPath); err == nil && info.IsDir() {
		configPath = filepath.Join(configPath, "config.toml")
	}

	c.configPath = configPath

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not stat config file %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return errors.Wrapf(err, "could not create config directory %s", filepath.Dir(configPath))
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0644); err != nil {
		return errors.Wrapf(err, "could not write default config file %s", configPath)
	}

	log.Info().Msgf("Generated default configuration at: %s — edit it before disabling dryRun", configPath)
	return nil
}

func (c *AppConfig) setDefaults() {
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("dryRun", true)

	c.viper.SetDefault("metricsEnabled", false)
	c.viper.SetDefault("metricsHost", "127.0.0.1")
	c.viper.SetDefault("metricsPort", 9074)

	c.viper.SetDefault("qbittorrent.host", "http://localhost:8080")
	c.viper.SetDefault("qbittorrent.timeoutSeconds", 30)

	c.viper.SetDefault("cleaner.enabled", true)
	c.viper.SetDefault("cleaner.intervalMinutes", 20)
	c.viper.SetDefault("cleaner.maxStrikes", 3)
	c.viper.SetDefault("cleaner.removeMetadataMissing", true)
	c.viper.SetDefault("cleaner.removeStalled", true)
	c.viper.SetDefault("cleaner.removeSlow", true)
	c.viper.SetDefault("cleaner.removeFailed", true)
	c.viper.SetDefault("cleaner.removeOrphans", false)
	c.viper.SetDefault("cleaner.metadataTimeoutMinutes", 15)
	c.viper.SetDefault("cleaner.stalledTimeoutMinutes", 15)
	c.viper.SetDefault("cleaner.minSpeedKiB", 100)
	c.viper.SetDefault("cleaner.protectedTags", []string{"protected", "keep"})
	c.viper.SetDefault("cleaner.privateTrackerTags", []string{"private"})
	c.viper.SetDefault("cleaner.obsoleteTag", "sweeparr-obsolete")

	c.viper.SetDefault("stuckimport.enabled", false)
	c.viper.SetDefault("stuckimport.intervalMinutes", 10)
	c.viper.SetDefault("stuckimport.retentionMinutes", 180)
}

// DynamicReload watches the config file and reloads it on change. Reload
// failures keep the previous configuration; the watch itself never stops.
func (c *AppConfig) DynamicReload() {
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := c.unmarshal()
		if err != nil {
			log.Error().Err(err).Msg("failed to reload config file, keeping previous configuration")
			return
		}

		c.mu.Lock()
		cfg.Version = c.config.Version
		changes := describeChanges(c.config, cfg)
		c.config = cfg
		c.mu.Unlock()

		if len(changes) == 0 {
			log.Debug().Str("file", e.Name).Msg("config file saved, no values changed")
			return
		}
		for _, change := range changes {
			log.Info().Str("file", e.Name).Msg(change)
		}
	})
	c.viper.WatchConfig()
}

// Snapshot returns a copy of the current configuration. Callers use one
// snapshot for a whole cycle so every decision within it sees consistent
// settings.
func (c *AppConfig) Snapshot() domain.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg := *c.config
	cfg.Arrs = append([]domain.ArrConfig(nil), c.config.Arrs...)
	cfg.Cleaner.ProtectedTags = append([]string(nil), c.config.Cleaner.ProtectedTags...)
	cfg.Cleaner.PrivateTrackerTags = append([]string(nil), c.config.Cleaner.PrivateTrackerTags...)
	return cfg
}

// ConfigPath returns the resolved path of the loaded config file.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// GetDatabasePath resolves the SQLite path: explicit setting first, then
// dataDir, then next to the config file.
func (c *AppConfig) GetDatabasePath() string {
	if path := c.viper.GetString("databasePath"); path != "" {
		return path
	}

	c.mu.RLock()
	dataDir := c.config.DataDir
	c.mu.RUnlock()

	if dataDir != "" {
		return filepath.Join(dataDir, "sweeparr.db")
	}
	return filepath.Join(filepath.Dir(c.configPath), "sweeparr.db")
}

// describeChanges reports the operator-visible setting changes between two
// configurations. It covers the settings the cleaner reads each cycle; the
// point is an audit trail in the log when someone edits the file.
func describeChanges(old, updated *domain.Config) []string {
	var changes []string

	add := func(name string, oldVal, newVal any) {
		if fmt.Sprintf("%v", oldVal) != fmt.Sprintf("%v", newVal) {
			changes = append(changes, fmt.Sprintf("config changed: %s %v -> %v", name, oldVal, newVal))
		}
	}

	add("logLevel", old.LogLevel, updated.LogLevel)
	add("dryRun", old.DryRun, updated.DryRun)
	add("cleaner.enabled", old.Cleaner.Enabled, updated.Cleaner.Enabled)
	add("cleaner.intervalMinutes", old.Cleaner.IntervalMinutes, updated.Cleaner.IntervalMinutes)
	add("cleaner.maxStrikes", old.Cleaner.MaxStrikes, updated.Cleaner.MaxStrikes)
	add("cleaner.removeMetadataMissing", old.Cleaner.RemoveMetadataMissing, updated.Cleaner.RemoveMetadataMissing)
	add("cleaner.removeStalled", old.Cleaner.RemoveStalled, updated.Cleaner.RemoveStalled)
	add("cleaner.removeSlow", old.Cleaner.RemoveSlow, updated.Cleaner.RemoveSlow)
	add("cleaner.removeFailed", old.Cleaner.RemoveFailed, updated.Cleaner.RemoveFailed)
	add("cleaner.removeOrphans", old.Cleaner.RemoveOrphans, updated.Cleaner.RemoveOrphans)
	add("cleaner.metadataTimeoutMinutes", old.Cleaner.MetadataTimeoutMinutes, updated.Cleaner.MetadataTimeoutMinutes)
	add("cleaner.stalledTimeoutMinutes", old.Cleaner.StalledTimeoutMinutes, updated.Cleaner.StalledTimeoutMinutes)
	add("cleaner.minSpeedKiB", old.Cleaner.MinSpeedKiB, updated.Cleaner.MinSpeedKiB)
	add("cleaner.protectedTags", old.Cleaner.ProtectedTags, updated.Cleaner.ProtectedTags)
	add("cleaner.privateTrackerTags", old.Cleaner.PrivateTrackerTags, updated.Cleaner.PrivateTrackerTags)
	add("cleaner.obsoleteTag", old.Cleaner.ObsoleteTag, updated.Cleaner.ObsoleteTag)
	add("stuckimport.enabled", old.StuckImport.Enabled, updated.StuckImport.Enabled)
	add("stuckimport.intervalMinutes", old.StuckImport.IntervalMinutes, updated.StuckImport.IntervalMinutes)
	add("stuckimport.retentionMinutes", old.StuckImport.RetentionMinutes, updated.StuckImport.RetentionMinutes)

	return changes
}

// getDefaultConfigDir mirrors the container convention: if XDG_CONFIG_HOME
// points at /config we are in Docker and use it directly, otherwise the
// user config dir gets a sweeparr subdirectory.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if xdg == "/config" {
			return xdg
		}
		return filepath.Join(xdg, "sweeparr")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "sweeparr")
	}
	return "."
}

var defaultConfigTemplate = strings.TrimLeft(`
# sweeparr configuration
# Settings are re-read while the daemon runs; edits apply on the next cycle.

# Global kill switch for destructive actions. Every delete, blocklist and
# tag call is logged but not sent while this is true.
dryRun = true

logLevel = "INFO"
#logPath = "/config/logs/sweeparr.log"

#metricsEnabled = true
#metricsHost = "127.0.0.1"
#metricsPort = 9074

[qbittorrent]
host = "http://localhost:8080"
username = "admin"
password = "adminadmin"

# Content managers, in ownership precedence order.
#[[arr]]
#name = "sonarr"
#type = "sonarr"
#url = "http://localhost:8989"
#apiKey = ""
#enabled = true

#[[arr]]
#name = "radarr"
#type = "radarr"
#url = "http://localhost:7878"
#apiKey = ""
#enabled = true

[cleaner]
enabled = true
intervalMinutes = 20
maxStrikes = 3
removeMetadataMissing = true
removeStalled = true
removeSlow = true
removeFailed = true
removeOrphans = false
metadataTimeoutMinutes = 15
stalledTimeoutMinutes = 15
minSpeedKiB = 100
protectedTags = ["protected", "keep"]
privateTrackerTags = ["private"]
obsoleteTag = "sweeparr-obsolete"

[stuckimport]
enabled = false
intervalMinutes = 10
retentionMinutes = 180
`, "\n")
