package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hychen958/Water-trekkie-gov/internal/limit"
	"github.com/hychen958/Water-trekkie-gov/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Str("path", cfg.DatabasePath).Msg("database up to date")
		return nil
	},
}

var limitCmd = &cobra.Command{
	Use:   "limit",
	Short: "Print today's daily water budget in liters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		v, err := newLimitProvider(cfg).DailyLimit(cmd.Context())
		if err != nil {
			return fmt.Errorf("daily limit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", limit.MonthKey(time.Now()), v)
		return nil
	},
}
