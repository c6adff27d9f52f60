package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRulesCmd(a *app) *cobra.Command {
	var (
		task   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Summarize the loaded rules or look up a task reward",
		Long: `Print a summary of the loaded rule documents.

With --task, print the reward for a task level instead. The level may be
given as the catalog key (level_2), a bare number (2) or an alias (l2,
builder).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.policy

			if task != "" {
				reward, ok := p.TaskReward(task)
				if !ok {
					return fmt.Errorf("no task reward for level %q", task)
				}
				if asJSON {
					return json.NewEncoder(a.out).Encode(map[string]any{
						"key": reward.Key, "xp": reward.XP, "label": reward.Label,
					})
				}
				fmt.Fprintf(a.out, "XP: %d\nLabel: %s\n", reward.XP, reward.Label)
				return nil
			}

			fmt.Fprintf(a.out, "Rules version %d\n", p.Version)
			fmt.Fprintf(a.out, "Loaded %d badges and %d task rewards.\n", len(p.Badges), len(p.TaskRewards))
			fmt.Fprintf(a.out, "Decay: half-life %g days, floor %g\n\n", p.Decay.HalfLifeDays, p.Decay.FloorRatio)

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tMIN XP")
			for _, l := range p.Levels {
				fmt.Fprintf(w, "%s\t%d\n", l.Key, l.MinXP)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "RULE\tLABEL\tXP")
			for _, r := range p.Regulatory {
				fmt.Fprintf(w, "%s\t%s\t%d\n", r.Key, r.Label, r.XP)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "LAB\tMIN EFFECTIVE\tMIN REGULATORY")
			for _, l := range p.Labs {
				fmt.Fprintf(w, "%s\t%d\t%d\n", l.Key, l.MinEffective, l.MinRegulatory)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "Task level to look up (level_1, l2, 3, explorer)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the task reward in JSON format")
	return cmd
}
