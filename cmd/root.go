package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/familytales/memorybook-api/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memorybook-api",
	Short: "FamilyTales Memory Book API server",
	Long: `FamilyTales Memory Book API - assembles heterogeneous family content
into continuous narrated audio.

A memory book thread collects handwritten letters, typed documents,
photos and recipe cards in order. The assembly pipeline extracts text
from each item, normalizes it into a single narration script,
synthesizes one continuous audio track, and publishes a segment map
tying each item to its time range in the track.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig loads the configuration when a command needs it
func loadConfig() {
	// Version and help don't need config
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
