package catalog

import (
	"fmt"
	"strings"
)

// Tier is a subscription level. Courses require a tier; plans grant one.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

var tierRanks = map[Tier]int{
	TierFree:    0,
	TierBasic:   1,
	TierPremium: 2,
}

// Rank returns the tier's position in free < basic < premium. ok is false
// for unknown tiers.
func (t Tier) Rank() (rank int, ok bool) {
	rank, ok = tierRanks[t]
	return rank, ok
}

// Includes reports whether a plan of tier t unlocks a course of tier course.
// Unknown tiers on either side never match.
func (t Tier) Includes(course Tier) bool {
	planRank, ok := t.Rank()
	if !ok {
		return false
	}
	courseRank, ok := course.Rank()
	if !ok {
		return false
	}
	return planRank >= courseRank
}

func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

// ParseTier normalises s and rejects unknown tiers.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}
