package gamification

import (
	"sort"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// LabMeetsRequirements reports whether a ledger satisfies every unlock
// condition of a lab. Empty requirement lists always pass.
func LabMeetsRequirements(doc *ledger.Document, lab rules.Lab) bool {
	if doc.XPEffective < lab.MinEffective || doc.XPRegulatory < lab.MinRegulatory {
		return false
	}
	if len(lab.Badges) > 0 {
		held := doc.BadgeSet()
		for _, b := range lab.Badges {
			if !held[b] {
				return false
			}
		}
	}
	if len(lab.Domains) > 0 {
		have := doc.DomainSet()
		for _, d := range lab.Domains {
			if !have[d] {
				return false
			}
		}
	}
	return true
}

// EvaluateLabs replaces labs_unlocked, labs_locked and lab_credits from the
// ledger's current XP, badges and domains. The previous unlock state is never
// consulted except to report which labs are new.
func EvaluateLabs(doc *ledger.Document, catalog []rules.Lab) (newlyUnlocked []string) {
	previous := make(map[string]bool, len(doc.LabsUnlocked))
	for _, l := range doc.LabsUnlocked {
		previous[l] = true
	}

	unlocked := []string{}
	locked := []string{}
	credits := []ledger.LabCredit{}

	for _, lab := range catalog {
		if !LabMeetsRequirements(doc, lab) {
			locked = append(locked, lab.Key)
			continue
		}
		unlocked = append(unlocked, lab.Key)
		if !previous[lab.Key] {
			newlyUnlocked = append(newlyUnlocked, lab.Key)
		}
		if lab.Credits != nil {
			credits = append(credits, ledger.LabCredit{
				Lab:            lab.Key,
				Credits:        lab.Credits.Credits,
				ECTSEquivalent: lab.Credits.ECTSEquivalent,
			})
		}
	}

	sort.Strings(unlocked)
	sort.Strings(locked)
	doc.LabsUnlocked = unlocked
	doc.LabsLocked = locked
	doc.LabCredits = credits
	return newlyUnlocked
}
