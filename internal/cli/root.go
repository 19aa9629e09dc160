package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "blitz",
		Short: "CLI tool for the blitzarena server",
		Long: `blitz is a CLI tool for the blitzarena matchmaking server.

It reads leaderboards and player stats from the JSON API, issues guest
identities, and can join a queue and play over the WebSocket connection.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load the saved identity if none was given via flag/env
			if err := cfg.LoadIdentity(); err != nil {
				return err
			}

			// Create HTTP client
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: BLITZ_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.UserID, "user", cfg.UserID, "User id to play as (env: BLITZ_USER)")
	rootCmd.PersistentFlags().StringVar(&cfg.IdentityFile, "identity-file", cfg.IdentityFile, "Saved identity path (env: BLITZ_IDENTITY_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newCountsCmd())
	rootCmd.AddCommand(newConnectionsCmd())
	rootCmd.AddCommand(newPlayCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
