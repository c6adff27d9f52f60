package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/store/filestore"
)

func newImportCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy ledger files from a directory into the configured store",
		Long: `Copy every <user>.json in --from into the configured backend.

Documents are copied byte for byte when the backend supports it, so a
malformed ledger stays malformed and shows up in validate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := a.openEngine(ctx)
			if err != nil {
				return err
			}
			src, err := filestore.New(from)
			if err != nil {
				return err
			}
			users, err := src.List(ctx)
			if err != nil {
				return err
			}

			raw, verbatim := engine.Store.(ledger.RawWriter)
			imported := 0
			for _, user := range users {
				var err error
				if verbatim {
					var data []byte
					if data, err = src.ReadRaw(ctx, user); err == nil {
						err = raw.PutRaw(ctx, user, data)
					}
				} else {
					var doc *ledger.Document
					if doc, err = src.Get(ctx, user); err == nil {
						err = engine.Store.Put(ctx, doc)
					}
				}
				if err != nil {
					fmt.Fprintf(a.out, "❌ %s: %v\n", user, err)
					continue
				}
				imported++
			}

			fmt.Fprintf(a.out, "Imported %d of %d ledgers.\n", imported, len(users))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Directory of <user>.json ledger files")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
