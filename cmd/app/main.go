package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PumpWatch/internal/di"
	"PumpWatch/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pumpwatch",
	Short: "Retrospective pump-and-dump detector for daily stock bars",
	Long: `pumpwatch scores daily bars for pump-and-dump signatures, labels what happened
afterwards, and tracks live alerts until their outcome is known.

Typical flow:
  pumpwatch analyze GME AMC BBBY   # build episodes, intervals and watch tiers
  pumpwatch scan                   # record today's alerts for due tiers
  pumpwatch track                  # classify alerts whose window has matured
  pumpwatch report                 # write the precision report
  pumpwatch serve                  # dashboard API plus the scheduled jobs`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path (missing file means defaults)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file when present and applies env overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func loadRuntime() (*di.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt, err := di.InitializeRuntime(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return rt, nil
}
