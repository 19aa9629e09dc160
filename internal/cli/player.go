package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player identity and stats commands",
	}

	cmd.AddCommand(newPlayerGuestCmd())
	cmd.AddCommand(newPlayerStatsCmd())
	cmd.AddCommand(newPlayerMatchesCmd())

	return cmd
}

func newPlayerGuestCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Issue a guest identity and save it for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			if name != "" {
				req["display_name"] = name
			}
			var result Guest

			if err := client.Post("/api/v1/players/guest", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveIdentity(result.UserID); err != nil {
				return fmt.Errorf("failed to save identity: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (generated when omitted)")

	return cmd
}

func newPlayerStatsCmd() *cobra.Command {
	var gameType string

	cmd := &cobra.Command{
		Use:   "stats [userId]",
		Short: "Show a player's stats (defaults to the saved identity)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userArg(args)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			path := "/api/v1/players/" + url.PathEscape(userID) + "/stats"

			if gameType != "" {
				var result GameStats
				if err := client.Get(path+"/"+url.PathEscape(gameType), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result PlayerStats
			if err := client.Get(path, &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameType, "game", "", "Only show one game type")

	return cmd
}

func newPlayerMatchesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "matches [userId]",
		Short: "List a player's recent matches (defaults to the saved identity)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userArg(args)
			if err != nil {
				return err
			}

			path := Query("/api/v1/players/"+url.PathEscape(userID)+"/matches", map[string]string{
				"limit": limitParam(limit),
			})
			var result Matches
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum matches to list (default: server default)")

	return cmd
}

// userArg returns the explicit user argument or falls back to the configured identity
func userArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.UserID == "" {
		return "", fmt.Errorf("no user given: pass a userId, --user, or run 'blitz player guest' first")
	}
	return cfg.UserID, nil
}

func limitParam(limit int) string {
	if limit <= 0 {
		return ""
	}
	return strconv.Itoa(limit)
}
