package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/service"
)

func newPathCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the shortest path between two parcels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				res *models.PathResult
				err error
			)
			if c := remote(); c != nil {
				res, err = c.FindPath(ctx, args[0], args[1], mode)
			} else {
				a, openErr := openApp(ctx)
				if openErr != nil {
					return openErr
				}
				defer a.close()

				res, err = a.navigation(service.NavigationOptions{}).FindPath(ctx, args[0], args[1], mode)
			}
			if err != nil {
				return fmt.Errorf("path query failed: %w", err)
			}

			output(res, []string{"STATUS", "HOPS", "DISTANCE_M", "NODES"}, [][]string{{
				string(res.Status),
				strconv.Itoa(res.Hops),
				strconv.FormatFloat(res.TotalDistance, 'f', 1, 64),
				strings.Join(res.Nodes, " > "),
			}})

			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "real", "Pathfinding mode: real|all")

	return cmd
}

func newDiagnosticsCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Report connected components and node categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				d   models.Diagnostics
				err error
			)
			if c := remote(); c != nil {
				var rd *models.Diagnostics
				if rd, err = c.Diagnostics(ctx, mode); rd != nil {
					d = *rd
				}
			} else {
				a, openErr := openApp(ctx)
				if openErr != nil {
					return openErr
				}
				defer a.close()

				d, err = a.navigation(service.NavigationOptions{}).Diagnostics(ctx, mode)
			}
			if err != nil {
				return fmt.Errorf("diagnostics failed: %w", err)
			}

			rows := make([][]string, 0, len(d.ComponentSizes.LargestComponents))
			for _, c := range d.ComponentSizes.LargestComponents {
				rows = append(rows, []string{strconv.Itoa(c.Size), c.SampleNode})
			}
			output(d, []string{"SIZE", "SAMPLE"}, rows)

			if d.Error != "" {
				return fmt.Errorf("diagnostics degraded: %s", d.Error)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "real", "Pathfinding mode: real|all")

	return cmd
}
