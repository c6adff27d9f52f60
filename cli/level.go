package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/gamification"
)

func newLevelCmd(a *app) *cobra.Command {
	var (
		xp     int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "level",
		Short: "Resolve the level for an XP total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if xp < 0 {
				return fmt.Errorf("xp must be non-negative, got %d", xp)
			}
			level := gamification.ResolveLevel(xp, a.policy.Levels)
			if asJSON {
				return json.NewEncoder(a.out).Encode(map[string]any{"xp": xp, "level": level})
			}
			fmt.Fprintf(a.out, "Level for %d XP: %s\n", xp, level)
			return nil
		},
	}
	cmd.Flags().Int64Var(&xp, "xp", 0, "XP total")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output result in JSON format")
	_ = cmd.MarkFlagRequired("xp")
	return cmd
}
