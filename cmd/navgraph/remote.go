package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/navgraph/client"
)

// remote returns a client when --url is set, nil for local mode.
func remote() *client.Client {
	if flagURL == "" {
		return nil
	}

	return client.New(flagURL)
}

func newPreloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preload",
		Short: "Ask a running server to rebuild its graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := remote()
			if c == nil {
				return errors.New("preload requires --url or NAVGRAPH_URL")
			}

			res, err := c.Preload(cmd.Context())
			if err != nil {
				return fmt.Errorf("preload failed: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Loaded epoch %d: %d parcels, %d connections\n",
				res.Epoch, res.Metadata.TotalParcels, res.Metadata.TotalConnections)
			output(res, []string{"EPOCH", "PARCELS", "CONNECTIONS"}, [][]string{{
				fmt.Sprint(res.Epoch), fmt.Sprint(res.Metadata.TotalParcels), fmt.Sprint(res.Metadata.TotalConnections),
			}})

			return nil
		},
	}
}
