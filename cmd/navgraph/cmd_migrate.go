package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/navgraph/internal/db"
	"github.com/persistorai/navgraph/internal/db/migrations"
)

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres store only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.pool == nil {
				return errors.New("migrate requires PARCEL_STORE=postgres")
			}

			if !status {
				return db.RunMigrations(ctx, a.pool, a.log, migrations.FS)
			}

			st, err := db.Status(ctx, a.pool, migrations.FS)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(st))
			for _, m := range st {
				rows = append(rows, []string{strconv.FormatInt(m.Version, 10), m.Path, strconv.FormatBool(m.Applied)})
			}
			output(st, []string{"VERSION", "FILE", "APPLIED"}, rows)

			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "List migrations and whether each is applied")

	return cmd
}
