// Package main implements mindctl, operator diagnostics for the MindMate backend.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mindctl",
	Short: "Diagnostics for the MindMate backend",
	Long: `mindctl checks a running MindMate API and the Postgres store behind it.

Store commands read DATABASE_URL from the environment or a local .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.AddCommand(newCheckAPICmd())
	rootCmd.AddCommand(newVerifyUserCmd())
	rootCmd.AddCommand(newCheckStoreCmd())
}
