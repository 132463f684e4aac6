// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ArrType identifies the kind of content manager an instance is.
type ArrType string

const (
	ArrTypeSonarr ArrType = "sonarr"
	ArrTypeRadarr ArrType = "radarr"
	ArrTypeLidarr ArrType = "lidarr"
)

// ParseArrType validates and normalizes a content-manager type string.
func ParseArrType(value string) (ArrType, error) {
	switch ArrType(strings.ToLower(strings.TrimSpace(value))) {
	case ArrTypeSonarr:
		return ArrTypeSonarr, nil
	case ArrTypeRadarr:
		return ArrTypeRadarr, nil
	case ArrTypeLidarr:
		return ArrTypeLidarr, nil
	default:
		return "", fmt.Errorf("invalid arr type: %s (must be 'sonarr', 'radarr' or 'lidarr')", value)
	}
}

// APIVersion returns the queue API version the instance type speaks.
// Lidarr still runs the v1 API; Sonarr and Radarr are on v3.
func (t ArrType) APIVersion() string {
	if t == ArrTypeLidarr {
		return "v1"
	}
	return "v3"
}

// Config represents the application configuration.
type Config struct {
	Version       string
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`

	// DryRun suppresses every mutating call against qBittorrent and the
	// Arr instances while keeping all decision making and logging intact.
	// Defaults to true so a fresh install never deletes anything silently.
	DryRun bool `toml:"dryRun" mapstructure:"dryRun"`

	MetricsEnabled bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost    string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort    int    `toml:"metricsPort" mapstructure:"metricsPort"`

	QBittorrent QBittorrentConfig `toml:"qbittorrent" mapstructure:"qbittorrent"`
	Arrs        []ArrConfig       `toml:"arr" mapstructure:"arr"`
	Cleaner     CleanerConfig     `toml:"cleaner" mapstructure:"cleaner"`
	StuckImport StuckImportConfig `toml:"stuckimport" mapstructure:"stuckimport"`
}

// QBittorrentConfig is the download-client connection.
type QBittorrentConfig struct {
	Host           string `toml:"host" mapstructure:"host"`
	Username       string `toml:"username" mapstructure:"username"`
	Password       string `toml:"password" mapstructure:"password"`
	TimeoutSeconds int    `toml:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	TLSSkipVerify  bool   `toml:"tlsSkipVerify" mapstructure:"tlsSkipVerify"`
}

// ArrConfig is one content-manager instance. Ownership precedence follows
// the order instances appear in the configuration file.
type ArrConfig struct {
	Name           string `toml:"name" mapstructure:"name"`
	Type           string `toml:"type" mapstructure:"type"`
	URL            string `toml:"url" mapstructure:"url"`
	APIKey         string `toml:"apiKey" mapstructure:"apiKey"`
	TimeoutSeconds int    `toml:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	Enabled        bool   `toml:"enabled" mapstructure:"enabled"`
}

// CleanerConfig configures the strike engine. Zero or negative timers and
// thresholds fall back to stock defaults; rules are switched off only
// through their Remove* flags.
type CleanerConfig struct {
	Enabled         bool `toml:"enabled" mapstructure:"enabled"`
	IntervalMinutes int  `toml:"intervalMinutes" mapstructure:"intervalMinutes"`

	MaxStrikes int `toml:"maxStrikes" mapstructure:"maxStrikes"`

	RemoveMetadataMissing bool `toml:"removeMetadataMissing" mapstructure:"removeMetadataMissing"`
	RemoveStalled         bool `toml:"removeStalled" mapstructure:"removeStalled"`
	RemoveSlow            bool `toml:"removeSlow" mapstructure:"removeSlow"`
	RemoveFailed          bool `toml:"removeFailed" mapstructure:"removeFailed"`
	RemoveOrphans         bool `toml:"removeOrphans" mapstructure:"removeOrphans"`

	MetadataTimeoutMinutes int `toml:"metadataTimeoutMinutes" mapstructure:"metadataTimeoutMinutes"`
	StalledTimeoutMinutes  int `toml:"stalledTimeoutMinutes" mapstructure:"stalledTimeoutMinutes"`
	MinSpeedKiB            int `toml:"minSpeedKiB" mapstructure:"minSpeedKiB"`

	ProtectedTags      []string `toml:"protectedTags" mapstructure:"protectedTags"`
	PrivateTrackerTags []string `toml:"privateTrackerTags" mapstructure:"privateTrackerTags"`
	ObsoleteTag        string   `toml:"obsoleteTag" mapstructure:"obsoleteTag"`
}

// StuckImportConfig configures the stuck-queue reconciler.
type StuckImportConfig struct {
	Enabled          bool `toml:"enabled" mapstructure:"enabled"`
	IntervalMinutes  int  `toml:"intervalMinutes" mapstructure:"intervalMinutes"`
	RetentionMinutes int  `toml:"retentionMinutes" mapstructure:"retentionMinutes"`
}

// EnabledArrs returns the enabled instances in configuration order, which
// is the ownership precedence order.
func (c *Config) EnabledArrs() []ArrConfig {
	var enabled []ArrConfig
	for _, arr := range c.Arrs {
		if arr.Enabled {
			enabled = append(enabled, arr)
		}
	}
	return enabled
}

// Validate checks the fields the daemon cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.QBittorrent.Host) == "" {
		return errors.New("qbittorrent.host is required")
	}

	seen := make(map[string]struct{}, len(c.Arrs))
	for i, arr := range c.Arrs {
		if !arr.Enabled {
			continue
		}
		if _, err := ParseArrType(arr.Type); err != nil {
			return fmt.Errorf("arr[%d]: %w", i, err)
		}
		if strings.TrimSpace(arr.URL) == "" {
			return fmt.Errorf("arr[%d] (%s): url is required", i, arr.Name)
		}
		if strings.TrimSpace(arr.APIKey) == "" {
			return fmt.Errorf("arr[%d] (%s): apiKey is required", i, arr.Name)
		}
		name := strings.ToLower(strings.TrimSpace(arr.Name))
		if name == "" {
			return fmt.Errorf("arr[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("arr[%d]: duplicate name %q", i, arr.Name)
		}
		seen[name] = struct{}{}
	}

	return nil
}
