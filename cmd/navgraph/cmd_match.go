package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Connect unmatched bridge points to their nearest counterparts",
		Long: `Scan every parcel for bridge points without a connection and pair each
with the nearest unmatched point on another parcel within MAX_BRIDGE_DISTANCE_M.
Runs hold the store's writer lock; a second concurrent run fails fast.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.matchService()
			if err != nil {
				return err
			}

			report, err := svc.Run(ctx)
			if report != nil {
				output(report, []string{"PARCELS", "EXAMINED", "SKIPPED", "PAIRS", "SAVED", "FAILED"}, [][]string{{
					strconv.Itoa(report.ParcelsScanned),
					strconv.Itoa(report.PointsExamined),
					strconv.Itoa(report.PointsSkipped),
					strconv.Itoa(report.PairsMatched),
					strconv.Itoa(report.ParcelsSaved),
					strconv.Itoa(report.SaveFailures),
				}})
			}
			if err != nil {
				return fmt.Errorf("match failed: %w", err)
			}

			return nil
		},
	}
}
