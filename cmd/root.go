// Package cmd provides command-line interface functionality for GCMTools.
// GCMTools is a collection of utilities for inspecting and modifying
// GameCube disc images (GCM format).
package cmd

import (
	"os"

	"github.com/jamesbrq/gcmtools/pkg/common"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
// It provides the main entry point for the GCMTools application.
var rootCmd = &cobra.Command{
	Use:   "gcmtools",
	Short: "Tools for inspecting and modifying GameCube disc images",
	Long: `GCMTools - A collection of utilities for inspecting and modifying
GameCube disc images (GCM format).

Currently supports:
  - GCM disc images (inspect header/table, extract files, patch and rebuild)
  - DOL executables (inspect the section table)

Examples:
  gcmtools gcm info game.gcm
  gcmtools gcm dump game.gcm ./output/
  gcmtools gcm patch game.gcm manifest.yaml game_modified.gcm
  gcmtools dol sections main.dol

Use 'gcmtools [command] --help' for more information about a command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logFile, _ := cmd.Flags().GetString("log-file")
		common.SetLogFile(logFile)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// init initializes the root command with flags and configuration settings.
func init() {
	rootCmd.PersistentFlags().String("log-file", "", "Mirror log output to a rotating file")
}
