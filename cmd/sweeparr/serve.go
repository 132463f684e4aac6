// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeparr/sweeparr/internal/buildinfo"
	"github.com/sweeparr/sweeparr/internal/config"
	"github.com/sweeparr/sweeparr/internal/database"
	"github.com/sweeparr/sweeparr/internal/metrics"
	"github.com/sweeparr/sweeparr/internal/models"
	"github.com/sweeparr/sweeparr/internal/qbittorrent"
	"github.com/sweeparr/sweeparr/internal/services/cleaner"
	"github.com/sweeparr/sweeparr/internal/services/stuckimport"
)

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sweeparr daemon",
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

			log.Info().
				Str("version", buildinfo.Version).
				Str("configPath", appConfig.ConfigPath()).
				Bool("dryRun", cfg.DryRun).
				Msg("starting sweeparr")
			if cfg.DryRun {
				log.Warn().Msg("dry-run mode is on, removals will be logged but not executed")
			}

			appConfig.DynamicReload()

			db, err := database.New(appConfig.GetDatabasePath())
			if err != nil {
				return errors.Wrap(err, "failed to open database")
			}
			defer db.Close()

			strikeStore := models.NewStrikeStore(db)

			qbitClient, err := qbittorrent.NewClient(cfg.QBittorrent)
			if err != nil {
				return errors.Wrap(err, "failed to connect to qBittorrent")
			}

			var metricsManager *metrics.Manager
			if cfg.MetricsEnabled {
				metricsManager = metrics.NewManager(buildinfo.Version)
			}

			cleanerService := cleaner.NewService(appConfig, strikeStore, qbitClient, metricsManager)
			stuckImportService := stuckimport.NewService(appConfig)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				cleanerService.Start(gctx)
				return nil
			})
			g.Go(func() error {
				stuckImportService.Start(gctx)
				return nil
			})
			if cfg.MetricsEnabled {
				metricsServer := metrics.NewServer(metricsManager, cfg.MetricsHost, cfg.MetricsPort)
				g.Go(func() error {
					return metricsServer.Start(gctx)
				})
			}

			if err := g.Wait(); err != nil {
				return errors.Wrap(err, "daemon exited with error")
			}

			log.Info().Msg("sweeparr shut down cleanly")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file or its directory")
	return cmd
}
