package cli

import (
	"github.com/spf13/cobra"
)

func newCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show players queued or playing per game type",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Counts

			if err := client.Get("/api/v1/counts", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newConnectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "Show live session and room totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Connections

			if err := client.Get("/api/v1/connections", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
