// Package cmd provides the command-line interface for the switch-core
// simulator.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ethsim",
	Short: "ethsim simulates the MAC-address learning core of an Ethernet switch.",
	Long: `ethsim drives frames through a behavioral model of an Ethernet ` +
		`switch's MAC-address lookup/learn engine, printing the forwarding ` +
		`decision for each frame and the diagnostic counters at the end of ` +
		`the run.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A .env file can provide defaults for the flags' env fallbacks.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
