// Package articlepolicy decides whether a user may read the decrypted body
// of a group-scoped article.
//
// The predicate is pure: no I/O, no side effects. Callers load the Group
// themselves; a missing group (dangling reference after group deletion) is
// passed as nil and always denies, it is not an error.
//
// All four tiers grant identical read access. Tier distinctions matter only
// for group-administration actions, which are decided elsewhere.
package articlepolicy

import (
	"github.com/dalemusser/helphub/internal/domain/models"
)

// CanAccess reports whether username may read bodies of articles scoped to
// group. True iff the username is present in any of the group's four
// membership tiers; false for a nil group.
func CanAccess(username string, group *models.Group) bool {
	if group == nil || username == "" {
		return false
	}
	for _, tier := range models.AllTiers {
		if group.HasMember(tier, username) {
			return true
		}
	}
	return false
}
