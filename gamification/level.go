package gamification

import (
	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// ResolveLevel maps cumulative XP to a level label: the highest catalog entry
// whose min_xp is at most xp, or ledger.DefaultLevel when none qualifies.
// Increasing xp never resolves to a lower level.
func ResolveLevel(xp int64, levels []rules.Level) string {
	sorted := sortedLevels(levels)
	label := ledger.DefaultLevel
	for _, l := range sorted {
		if l.MinXP > xp {
			break
		}
		label = l.Key
	}
	return label
}

// LevelRank returns the position of label in the catalog ordering, or -1
// for a label outside the catalog (including the fallback level when the
// catalog does not define it).
func LevelRank(label string, levels []rules.Level) int {
	for i, l := range sortedLevels(levels) {
		if l.Key == label {
			return i
		}
	}
	return -1
}

func sortedLevels(levels []rules.Level) []rules.Level {
	sorted := make([]rules.Level, len(levels))
	copy(sorted, levels)
	rules.SortLevels(sorted)
	return sorted
}
