package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sitedocs/internal/store"
)

func addMigrate(topLevel *cobra.Command) {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Example: `
sitectl migrate
sitectl migrate --dir ./db/migrations
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if dir == "" {
					dir = e.cfg.MigrationsDir
				}
				applied, err := store.ApplyMigrations(ctx, e.db, dir)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					_, _ = fmt.Fprintln(e.out, "schema is up to date")
					return nil
				}
				for _, v := range applied {
					_, _ = fmt.Fprintf(e.out, "applied %s\n", v)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	topLevel.AddCommand(cmd)
}
