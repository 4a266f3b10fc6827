// internal/app/features/groups/types.go
package groups

// createGroupRequest is the JSON body for POST /groups. The creator is the
// requesting user and is seeded into the admin set.
type createGroupRequest struct {
	Name string `json:"name"`
}

// memberRequest is the JSON body for adding a user to a membership tier.
type memberRequest struct {
	Username string `json:"username"`
}
