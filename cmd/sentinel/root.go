package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile is the global --config flag, shared by every subcommand.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - compliance rule synthesis and trade pre-clearance",
	Long: `Sentinel converts free-form compliance policy documents into executable
trade rules and evaluates employee trade questions against them.

It provides:
  - LLM-backed rule synthesis with iterative refinement
  - Sandboxed validation of every generated rule before deployment
  - Per-firm rule bundles persisted as reviewable JSON
  - Natural-language trade pre-clearance checks with full audit trails`,
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
}
