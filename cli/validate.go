package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every ledger against the engine invariants",
		Long: `Check every stored ledger and print one line per user.

Exits 0 when every ledger is valid and 1 otherwise. Nothing is repaired.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := a.openEngine(ctx)
			if err != nil {
				return err
			}

			report, err := engine.Validate(ctx)
			if err != nil {
				return err
			}

			for _, r := range report.Results {
				mark := "✅"
				if !r.Valid {
					mark = "❌"
				}
				fmt.Fprintf(a.out, "%s %s: %s\n", mark, r.User, r.Reason())
			}
			fmt.Fprintln(a.out, strings.Repeat("-", 30))
			fmt.Fprintf(a.out, "Summary: %d checked, %d invalid.\n", report.Checked, report.Invalid)

			if !report.OK() {
				return errInvalidLedgers
			}
			return nil
		},
	}
}
