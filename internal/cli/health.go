package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := checkHealth(client, wait, 200*time.Millisecond)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying until the server answers or this long has passed")

	return cmd
}

// checkHealth polls the health endpoint until it answers or wait elapses
func checkHealth(c *Client, wait, interval time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)
	for {
		var result HealthResult
		err := c.Get("/api/v1/health", &result)
		if err == nil {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			if wait > 0 {
				return HealthResult{}, fmt.Errorf("server not healthy after %s: %w", wait, err)
			}
			return HealthResult{}, err
		}
		time.Sleep(interval)
	}
}
