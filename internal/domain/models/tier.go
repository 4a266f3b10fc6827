// internal/domain/models/tier.go
package models

import "fmt"

// Tier identifies one of the four independent membership sets of a Group.
// Tiers are a closed enumeration so membership logic can be exhaustive
// instead of comparing role strings.
type Tier string

const (
	TierAdmin           Tier = "admin"
	TierInstructorAdmin Tier = "instructor_admin"
	TierInstructor      Tier = "instructor"
	TierStudent         Tier = "student"
)

// AllTiers lists every membership tier. Ranging over it keeps access
// checks exhaustive when a tier is added.
var AllTiers = []Tier{TierAdmin, TierInstructorAdmin, TierInstructor, TierStudent}

// ParseTier validates a raw tier string (as it appears in URLs and
// request payloads) and returns the typed Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierAdmin, TierInstructorAdmin, TierInstructor, TierStudent:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q (want one of admin|instructor_admin|instructor|student)", s)
}
