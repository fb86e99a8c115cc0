package commands

import (
	"context"

	"github.com/spf13/cobra"

	"sitedocs/internal/doccache"
	"sitedocs/internal/ordering"
	"sitedocs/internal/store"
)

func addPool(topLevel *cobra.Command) {
	var kind string
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "List unassigned documents",
		Example: `
sitectl pool
sitectl pool --kind drawing
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				docs, err := doccache.Fetch(ctx, e.store, doccache.Pool(kind, e.cfg.DocumentListLimit))
				if err != nil {
					return err
				}
				renderDocuments(e.out, docs, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", store.KindDocument, "document kind")
	topLevel.AddCommand(cmd)
}

func addFolder(topLevel *cobra.Command) {
	var kind string
	cmd := &cobra.Command{
		Use:   "folder <id>",
		Short: "List a folder's documents in display order",
		Example: `
sitectl folder 5f0c...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID := args[0]
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if _, err := e.store.GetFolder(ctx, folderID); err != nil {
					return err
				}
				docs, err := doccache.Fetch(ctx, e.store, doccache.Folder(folderID, kind, e.cfg.DocumentListLimit))
				if err != nil {
					return err
				}
				order := e.orders().Load(ctx, folderID)
				renderDocuments(e.out, ordering.Apply(docs, order), order)

				rows, err := e.store.ListPairingRows(ctx, folderID)
				if err != nil {
					return err
				}
				if len(rows) > 0 {
					renderPairingRows(e.out, rows)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", store.KindDocument, "document kind")
	topLevel.AddCommand(cmd)
}
