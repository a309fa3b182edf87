package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - session lifecycle and data retention engine",
	Long: `Callisto manages the lifecycle of privacy-sensitive analysis sessions.

It provides:
  - Tiered session expiration policies with bounded extensions
  - Per-user daily admission quotas with atomic arbitration
  - Retention policies for governed data artifacts
  - Scheduled batch cleanup with secure deletion
  - Append-only audit trails for every lifecycle transition`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
