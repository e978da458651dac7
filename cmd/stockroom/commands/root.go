package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/app"
)

// Version is set at build time with -ldflags
var Version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "stockroom",
	Short: "Stockroom - inventory tracking service",
	Long: `Stockroom keeps product stock levels and a log of every stock movement.

Receipts, distributions and manual subtractions are recorded as transactions
that can be listed, exported and restored through the HTTP API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the YAML config file")
}

// loadApp reads configuration and initializes the application
func loadApp() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	a := app.NewApplication(cfg)
	if err := a.Init(cfg); err != nil {
		return nil, err
	}
	return a, nil
}
