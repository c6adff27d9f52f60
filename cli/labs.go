package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

func newLabsCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "labs",
		Short: "Evaluate lab unlocks for every ledger (or one)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := a.openEngine(ctx)
			if err != nil {
				return err
			}

			if user != "" {
				doc, err := engine.EvaluateLabs(ctx, ledger.UserID(user))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s: unlocked=[%s] locked=[%s]\n",
					doc.User, strings.Join(doc.LabsUnlocked, ", "), strings.Join(doc.LabsLocked, ", "))
				return nil
			}

			res, err := engine.EvaluateLabsAll(ctx)
			if err != nil {
				return err
			}
			for _, f := range res.Failed {
				fmt.Fprintf(a.out, "❌ %s: %s\n", f.User, f.Reason)
			}
			fmt.Fprintf(a.out, "Labs evaluated for %d users.\n", len(res.Updated))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Only evaluate this user's ledger")
	return cmd
}
