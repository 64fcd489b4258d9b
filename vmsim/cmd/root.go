// Package cmd provides the command-line interface of vmsim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vmsim",
	Short: "vmsim replays memory management scripts against page replacement policies.",
	Long: `vmsim replays scripts of new, use, delete and kill commands against a ` +
		`fixed pool of physical frames. When the pool is full a replacement ` +
		`policy picks the page that goes to the backing store.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loadDotEnv()
		return applyEnvDefaults(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads .env from the working directory if there is one. Variables
// already in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}

	_ = godotenv.Load()
}
