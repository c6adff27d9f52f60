package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/gamification"
	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

func newAwardCmd(a *app) *cobra.Command {
	var (
		user      string
		pr        int64
		labels    string
		timestamp string
	)
	cmd := &cobra.Command{
		Use:   "award",
		Short: "Award regulatory XP for a PR's labels (idempotent per rule and PR)",
		Long: `Award non-decaying regulatory XP to a user for one PR.

Labels are comma separated. Re-running with the same user and PR awards
nothing new. The result is printed as JSON.`,
		Example: `  xpledger award --user alice --pr 42 --labels "compliance:gdpr,reviewed" --timestamp 2025-06-01T00:00:00Z`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := a.openEngine(ctx)
			if err != nil {
				return err
			}

			res, err := engine.AwardRegulatory(ctx, gamification.AwardRequest{
				User:      ledger.UserID(user),
				PR:        pr,
				Labels:    splitLabels(labels),
				Timestamp: timestamp,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.out)
			enc.SetEscapeHTML(false)
			return enc.Encode(res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&user, "user", "", "User to award")
	f.Int64Var(&pr, "pr", 0, "PR number that triggered the award")
	f.StringVar(&labels, "labels", "", "Comma-separated PR labels")
	f.StringVar(&timestamp, "timestamp", "", "Event timestamp (ISO-8601)")
	for _, name := range []string{"user", "pr", "labels", "timestamp"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func splitLabels(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
