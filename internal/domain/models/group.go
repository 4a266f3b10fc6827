// internal/domain/models/group.go
package models

import (
	"time"
)

// Group is a named access scope for articles.
//
// NOTE:
//   - The four membership lists are independent sets of usernames; being in
//     one tier neither implies nor excludes being in another. Order carries
//     no meaning and duplicates are never stored.
//   - ArticleIDs is a denormalized cache of the ids of articles whose
//     GroupName equals Name. It is rebuildable from the articles collection
//     and must never be used for access decisions.
//   - Groups are persisted by groupstore in a delimited-text document
//     encoding, so there are no bson tags here.
type Group struct {
	Name             string   `json:"name"`
	Admins           []string `json:"admins"`
	InstructorAdmins []string `json:"instructor_admins"`
	Instructors      []string `json:"instructors"`
	Students         []string `json:"students"`
	ArticleIDs       []int64  `json:"article_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Members returns the membership set for the given tier.
func (g *Group) Members(tier Tier) []string {
	switch tier {
	case TierAdmin:
		return g.Admins
	case TierInstructorAdmin:
		return g.InstructorAdmins
	case TierInstructor:
		return g.Instructors
	case TierStudent:
		return g.Students
	}
	return nil
}

// setMembers replaces the membership set for the given tier.
func (g *Group) setMembers(tier Tier, members []string) {
	switch tier {
	case TierAdmin:
		g.Admins = members
	case TierInstructorAdmin:
		g.InstructorAdmins = members
	case TierInstructor:
		g.Instructors = members
	case TierStudent:
		g.Students = members
	}
}

// HasMember reports whether username is in the given tier.
func (g *Group) HasMember(tier Tier, username string) bool {
	for _, m := range g.Members(tier) {
		if m == username {
			return true
		}
	}
	return false
}

// HasAnyMember reports whether username is in any of the four tiers.
func (g *Group) HasAnyMember(username string) bool {
	for _, tier := range AllTiers {
		if g.HasMember(tier, username) {
			return true
		}
	}
	return false
}

// AddMember inserts username into the given tier. Adding a username that
// is already present is a no-op; the return value reports whether the set
// changed.
func (g *Group) AddMember(tier Tier, username string) bool {
	if g.HasMember(tier, username) {
		return false
	}
	g.setMembers(tier, append(g.Members(tier), username))
	return true
}

// RemoveMember removes username from the given tier. Removing an absent
// username is a no-op; the return value reports whether the set changed.
func (g *Group) RemoveMember(tier Tier, username string) bool {
	members := g.Members(tier)
	for i, m := range members {
		if m == username {
			g.setMembers(tier, append(members[:i:i], members[i+1:]...))
			return true
		}
	}
	return false
}

// HasArticleID reports whether id is in the article-id index.
func (g *Group) HasArticleID(id int64) bool {
	for _, a := range g.ArticleIDs {
		if a == id {
			return true
		}
	}
	return false
}

// AddArticleID inserts id into the article-id index (set semantics).
func (g *Group) AddArticleID(id int64) bool {
	if g.HasArticleID(id) {
		return false
	}
	g.ArticleIDs = append(g.ArticleIDs, id)
	return true
}

// RemoveArticleID removes id from the article-id index.
func (g *Group) RemoveArticleID(id int64) bool {
	for i, a := range g.ArticleIDs {
		if a == id {
			g.ArticleIDs = append(g.ArticleIDs[:i:i], g.ArticleIDs[i+1:]...)
			return true
		}
	}
	return false
}
