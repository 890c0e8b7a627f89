// Command wellspring runs the water-management simulation server and its
// offline tools.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/config"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wellspring",
		Short: "Idle water-management simulation",
		Long: `Wellspring simulates a water utility: pump groundwater, purify and
bottle it, and keep the aquifer alive while pollution climbs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := catalog.Validate(); err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")

	rootCmd.AddCommand(newServeCmd(), newSimulateCmd(), newCatalogCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file if one was given, else the environment.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.FromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}
