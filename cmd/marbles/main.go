// Command marbles animates marbles rolling over a measured track on an LED
// strip and accepts launches over HTTP.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/marbles/internal/config"
	"github.com/banshee-data/marbles/internal/monitoring"
	"github.com/banshee-data/marbles/internal/version"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marbles",
		Short: "Marbles rolling over a measured track on an LED strip",
		Long: `marbles simulates marbles rolling under gravity over a measured height
profile and draws them on an addressable LED strip.

Launch new marbles from the web page served by "marbles run", or POST
{"hue":0-360,"velocity":10,"direction":true} to /launch.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.SetVerbose(flagVerbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Tuning JSON file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log every launch and dropped payload")

	rootCmd.AddCommand(
		newRunCmd(),
		newMeasureCmd(),
		newTrackCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// loadTuning reads --config, or returns the built-in defaults when no file
// was given.
func loadTuning() (*config.TuningConfig, error) {
	if flagConfig == "" {
		return config.EmptyTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded tuning from %s", flagConfig)
	return cfg, nil
}
