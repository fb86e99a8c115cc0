package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sitedocs/internal/resolver"
)

func addResolve(topLevel *cobra.Command) {
	var activeFolder string
	cmd := &cobra.Command{
		Use:   "resolve <row> <slot>",
		Short: "Find the document behind a pairing slot",
		Example: `
sitectl resolve 9b1d... 1
sitectl resolve 9b1d... 2 --active-folder 5f0c...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("slot must be 1 or 2: %w", err)
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				row, err := e.store.GetPairingRow(ctx, args[0])
				if err != nil {
					return fmt.Errorf("load pairing row %s: %w", args[0], err)
				}
				doc, err := resolver.New(e.store, e.cfg.DocumentListLimit, e.logger).Resolve(ctx, row, slot, activeFolder)
				if errors.Is(err, resolver.ErrNoMatch) {
					_, _ = fmt.Fprintln(e.out, failure.Sprint("no matching document"))
					return nil
				}
				if err != nil {
					return err
				}
				renderDocument(e.out, doc)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&activeFolder, "active-folder", "", "folder currently on screen")
	topLevel.AddCommand(cmd)
}
