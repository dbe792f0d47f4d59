// Command navgraph serves and maintains the canal-city navigation graph.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/navgraph/internal/config"
)

var (
	flagProfile    string
	flagConfigPath string
	flagFmt        string
	flagURL        string
)

func versionString() string {
	return fmt.Sprintf("navgraph version %s", config.Version)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "navgraph",
		Short:   "navgraph: bridge matching, graph building and pathfinding for parcels",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := flagConfigPath
			if path == "" {
				path = defaultProfilePath()
			}

			if flagURL == "" {
				flagURL = os.Getenv("NAVGRAPH_URL")
			}

			return applyProfile(path, flagProfile)
		},
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Profile file (default: ~/.navgraph/config.yaml)")
	root.PersistentFlags().StringVar(&flagProfile, "profile", "", "Profile name (default: active_profile from the file)")
	root.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table")
	root.PersistentFlags().StringVar(&flagURL, "url", "", "Query a running server instead of the local store (env: NAVGRAPH_URL)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMatchCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newPathCmd())
	root.AddCommand(newDiagnosticsCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newPreloadCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
