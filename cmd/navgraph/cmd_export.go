package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/service"
)

func newExportCmd() *cobra.Command {
	var (
		outputPath string
		fromCache  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the navigation graph in its export format",
		Long: `Build the graph from the store and write the simple and enhanced views
with metadata. With --from-cache, read the snapshot last published to Redis
instead of rebuilding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := loadExport(cmd.Context(), fromCache)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			out, err := json.MarshalIndent(export, "", "  ")
			if err != nil {
				return fmt.Errorf("marshalling export: %w", err)
			}

			if outputPath == "" || outputPath == "-" {
				_, err = os.Stdout.Write(append(out, '\n'))
				return err
			}

			if err := os.WriteFile(outputPath, out, 0o600); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Exported %d parcels, %d connections (epoch %d) to %s\n",
				export.Metadata.TotalParcels, export.Metadata.TotalConnections, export.Epoch, outputPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&fromCache, "from-cache", false, "Read the last published snapshot from Redis")

	return cmd
}

// loadExport reads the graph from the server (--url), the Redis cache, or a
// fresh build over the local store.
func loadExport(ctx context.Context, fromCache bool) (*models.GraphExport, error) {
	if c := remote(); c != nil && !fromCache {
		return c.Graph(ctx)
	}

	a, err := openApp(ctx)
	if err != nil {
		return nil, err
	}
	defer a.close()

	if fromCache {
		if a.cache == nil {
			return nil, errors.New("--from-cache requires REDIS_URL")
		}

		return a.cache.Fetch(ctx)
	}

	return a.navigation(service.NavigationOptions{}).Export(ctx)
}
