// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sweeparr/sweeparr/internal/arr"
	"github.com/sweeparr/sweeparr/internal/buildinfo"
	"github.com/sweeparr/sweeparr/internal/config"
	"github.com/sweeparr/sweeparr/internal/domain"
	"github.com/sweeparr/sweeparr/internal/qbittorrent"
)

func RunConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration operations",
	}

	cmd.AddCommand(runConfigCheckCommand())
	return cmd
}

// config check validates the file and probes every configured endpoint
// without mutating anything remote.
func runConfigCheckCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and test connectivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appConfig, err := config.New(configPath, buildinfo.Version)
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}

			cfg := appConfig.Snapshot()
			initLogger(cfg)

			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
			cmd.Printf("Configuration OK: %s\n", appConfig.ConfigPath())

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			failures := 0

			qbitClient, err := qbittorrent.NewClient(cfg.QBittorrent)
			if err != nil {
				cmd.Printf("qBittorrent %s: FAILED (%v)\n", cfg.QBittorrent.Host, err)
				failures++
			} else {
				cmd.Printf("qBittorrent %s: OK (WebAPI %s)\n", cfg.QBittorrent.Host, qbitClient.GetWebAPIVersion())
				if !qbitClient.SupportsSetTags() {
					cmd.Println("  warning: WebAPI is older than 2.11.4, private orphans cannot be tagged as obsolete")
				}
			}

			for _, instance := range cfg.EnabledArrs() {
				arrType, err := domain.ParseArrType(instance.Type)
				if err != nil {
					cmd.Printf("%s: FAILED (%v)\n", instance.Name, err)
					failures++
					continue
				}

				client := arr.NewClient(arr.Config{
					Name:      instance.Name,
					Type:      arrType,
					BaseURL:   instance.URL,
					APIKey:    instance.APIKey,
					Timeout:   instance.TimeoutSeconds,
					UserAgent: buildinfo.UserAgent,
				})

				status, err := client.SystemStatus(ctx)
				if err != nil {
					cmd.Printf("%s (%s): FAILED (%v)\n", instance.Name, instance.URL, err)
					failures++
					continue
				}
				cmd.Printf("%s (%s): OK (%s %s)\n", instance.Name, instance.URL, status.AppName, status.Version)
			}

			if failures > 0 {
				return errors.Errorf("%d endpoint(s) failed the connectivity check", failures)
			}
			cmd.Println("All endpoints reachable.")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file or its directory")
	return cmd
}
