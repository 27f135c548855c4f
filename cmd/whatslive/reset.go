package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DevRickLin/whats-live/internal/biz/usecase"
	"github.com/DevRickLin/whats-live/internal/data"
	"github.com/DevRickLin/whats-live/internal/log"
)

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete saved display config, layouts and programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			settingsRepo, err := data.NewSettingsRepo(cfg.Storage.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open settings: %w", err)
			}
			repos := &data.Repositories{Settings: settingsRepo}
			defer repos.Close()

			settings, err := usecase.NewSettingsUsecase(cmd.Context(), settingsRepo)
			if err != nil {
				return err
			}
			if err := settings.Reset(cmd.Context()); err != nil {
				return err
			}
			logger := log.WithComponent("main")
			logger.Info().Str("path", cfg.Storage.DBPath).Msg("settings reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
