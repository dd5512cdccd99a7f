package schedulerobjects

import "strings"

// Tier is the service class of the tenant a job is submitted on behalf of.
// It determines both base priority and per-tenant concurrency allowance.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
	TierMax  Tier = "MAX"
)

// KnownTiers lists the tiers the scheduler has policy for, most restrictive first.
var KnownTiers = []Tier{TierFree, TierPro, TierMax}

// MostRestrictiveTier is the tier whose policy applies to jobs with an unrecognised tier.
const MostRestrictiveTier = TierFree

// ParseTier normalises s into a Tier. Unknown values are preserved rather than rejected;
// policy lookups resolve them to MostRestrictiveTier.
func ParseTier(s string) Tier {
	return Tier(strings.ToUpper(strings.TrimSpace(s)))
}

func (t Tier) IsKnown() bool {
	for _, known := range KnownTiers {
		if t == known {
			return true
		}
	}
	return false
}

// PolicyTier returns the tier whose policy governs t.
func (t Tier) PolicyTier() Tier {
	if t.IsKnown() {
		return t
	}
	return MostRestrictiveTier
}

func (t Tier) String() string {
	return string(t)
}
