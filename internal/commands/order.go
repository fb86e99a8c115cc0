package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sitedocs/internal/doccache"
	"sitedocs/internal/store"
)

func addOrder(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Read or write a folder's custom order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <folder>",
		Short: "Print the stored order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				renderOrder(e.out, e.orders().Load(ctx, args[0]))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <folder> <id>...",
		Short: "Replace the stored order",
		Example: `
sitectl order set 5f0c... doc-3 doc-1 doc-2
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if _, err := e.store.GetFolder(ctx, args[0]); err != nil {
					return err
				}
				orders := e.orders()
				persisted := orders.Save(ctx, args[0], args[1:])
				current, _ := orders.Current(args[0])
				renderOrder(e.out, current)
				_, _ = fmt.Fprintf(e.out, "persisted: %s\n", persistedLabel(persisted.String()))

				docs, err := doccache.Fetch(ctx, e.store, doccache.Folder(args[0], store.KindDocument, e.cfg.DocumentListLimit))
				if err != nil {
					e.logger.Warn("could not list folder documents", "folder_id", args[0], "error", err)
					return nil
				}
				renderMissing(e.out, current, docs)
				return nil
			})
		},
	})

	topLevel.AddCommand(cmd)
}
