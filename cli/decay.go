package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

func newDecayCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Recompute xp_effective for every ledger (or one) with time decay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := a.openEngine(ctx)
			if err != nil {
				return err
			}

			if user != "" {
				doc, _, err := engine.ApplyDecay(ctx, ledger.UserID(user))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "XP decay applied to %s: effective=%d regulatory=%d level=%s\n",
					doc.User, doc.XPEffective, doc.XPRegulatory, doc.Level)
				return nil
			}

			res, err := engine.DecayAll(ctx)
			if err != nil {
				return err
			}
			for _, f := range res.Failed {
				fmt.Fprintf(a.out, "❌ %s: %s\n", f.User, f.Reason)
			}
			fmt.Fprintf(a.out, "XP decay applied to %d users.\n", len(res.Updated))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Only decay this user's ledger")
	return cmd
}
