package rules

import "strings"

var taskAliases = map[string]string{
	"1": "level_1", "l1": "level_1", "explorer": "level_1",
	"2": "level_2", "l2": "level_2", "builder": "level_2",
	"3": "level_3", "l3": "level_3", "engineer": "level_3",
	"4": "level_4", "l4": "level_4", "steward": "level_4",
}

// TaskReward looks up the reward for a task level. Accepts the catalog key
// itself ("level_2"), a bare suffix ("2"), or a common alias ("l2",
// "builder"). Hyphens and case are ignored.
func (p *Policy) TaskReward(levelKey string) (TaskReward, bool) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(levelKey)), "-", "_")
	if r, ok := p.TaskRewards[norm]; ok {
		return r, true
	}
	if r, ok := p.TaskRewards["level_"+norm]; ok {
		return r, true
	}
	if alias, ok := taskAliases[norm]; ok {
		r, ok := p.TaskRewards[alias]
		return r, ok
	}
	return TaskReward{}, false
}
