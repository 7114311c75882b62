// main.go
//
// Entry point for the watertrek binary.
// Sub-commands:
//   - serve   → run the HTTP API (default when no command is given)
//   - migrate → apply the embedded SQLite migrations and exit
//   - limit   → print today's daily water budget and exit
//
// Configuration is read from the environment (and .env in development) by
// internal/config; the global zerolog level follows LOG_LEVEL.

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hychen958/Water-trekkie-gov/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "watertrek",
	Short:         "Water Trek game server",
	Long:          `Water Trek hosts the water-budget game: accounts, saved games and live sessions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().Bool("pretty", false, "Human-readable console logs instead of JSON")
	rootCmd.AddCommand(serveCmd, migrateCmd, limitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("watertrek exited")
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up the global logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, keeping info")
	}
	return cfg, nil
}
